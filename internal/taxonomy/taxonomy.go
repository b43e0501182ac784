package taxonomy

import (
	"fmt"
	"strings"

	"validity.app/auditor/internal/model"
)

type Kind string

const (
	KindMicro      Kind = "micro"
	KindStructural Kind = "structural"
)

// Entry describes one allowed finding type.
type Entry struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"kind"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Example       string         `json:"example,omitempty"`
	Severity      model.Severity `json:"severity"`
	Actionability string         `json:"actionability"`
}

type Metadata struct {
	Severity      model.Severity
	Actionability string
}

// Table is an immutable set of allowed finding types. Safe for concurrent use.
type Table struct {
	version    string
	micro      []Entry
	structural []Entry
	byID       map[string]Entry
}

// New builds a table, rejecting duplicate IDs and unknown kinds or severities.
// Entry order is kept; it drives the prompt text.
func New(version string, entries []Entry) (*Table, error) {
	if version == "" {
		return nil, fmt.Errorf("taxonomy version is required")
	}

	t := &Table{
		version: version,
		byID:    make(map[string]Entry, len(entries)),
	}
	for _, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("taxonomy entry with empty id")
		}
		if _, dup := t.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate taxonomy id %q", e.ID)
		}
		if e.Severity.Rank() == 0 {
			return nil, fmt.Errorf("taxonomy id %q: invalid severity %q", e.ID, e.Severity)
		}
		switch e.Kind {
		case KindMicro:
			t.micro = append(t.micro, e)
		case KindStructural:
			t.structural = append(t.structural, e)
		default:
			return nil, fmt.Errorf("taxonomy id %q: invalid kind %q", e.ID, e.Kind)
		}
		t.byID[e.ID] = e
	}
	return t, nil
}

func (t *Table) Version() string {
	return t.version
}

// IsAllowed reports whether id is a known type of the given kind. Matching is exact.
func (t *Table) IsAllowed(kind Kind, id string) bool {
	e, ok := t.byID[id]
	return ok && e.Kind == kind
}

func (t *Table) MetadataFor(id string) (Metadata, bool) {
	e, ok := t.byID[id]
	if !ok {
		return Metadata{}, false
	}
	return Metadata{Severity: e.Severity, Actionability: e.Actionability}, true
}

// Entries returns a copy of the entries of one kind, in table order.
func (t *Table) Entries(kind Kind) []Entry {
	var src []Entry
	switch kind {
	case KindMicro:
		src = t.micro
	case KindStructural:
		src = t.structural
	}
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// PromptText renders the allowed types for inclusion in the oracle prompt.
func (t *Table) PromptText() string {
	var b strings.Builder

	b.WriteString("ALLOWED MICRO REASONING FAILURE TYPES (sentence- or paragraph-level):\n")
	for _, e := range t.micro {
		fmt.Fprintf(&b, "\n- %s: %s\n", e.ID, e.Description)
		if e.Example != "" {
			fmt.Fprintf(&b, "  Example: %s\n", e.Example)
		}
	}

	b.WriteString("\n\nALLOWED STRUCTURAL REASONING FAILURE TYPES (document-level):\n")
	for _, e := range t.structural {
		fmt.Fprintf(&b, "\n- %s: %s\n", e.ID, e.Description)
	}

	return strings.TrimRight(b.String(), "\n")
}
