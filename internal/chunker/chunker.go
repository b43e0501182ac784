// Package chunker splits normalized documents into bounded, overlapping windows.
package chunker

import "strings"

const (
	DefaultChunkSize = 18000
	DefaultOverlap   = 800
)

// Chunk is one window of the document. Start and End are character offsets
// into the source text; Text is the window with surrounding whitespace trimmed.
type Chunk struct {
	Index int
	Start int
	End   int
	Text  string
}

type Chunker struct {
	chunkSize int
	overlap   int
}

type Option func(*Chunker)

// WithChunkSize sets the maximum window size in characters. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets how many characters adjacent windows share. Negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Chunker) ChunkSize() int { return c.chunkSize }
func (c *Chunker) Overlap() int   { return c.overlap }

// Split windows text. Each next window starts at max(0, prevEnd-overlap);
// splitting stops as soon as that start fails to advance, so an overlap at
// least as large as the chunk size yields only the first window. Windows that
// are blank after trimming are dropped and do not consume an index.
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	if n <= c.chunkSize {
		return appendChunk(nil, runes, 0, n)
	}

	var chunks []Chunk
	start := 0
	for start < n {
		end := min(start+c.chunkSize, n)
		chunks = appendChunk(chunks, runes, start, end)
		if end >= n {
			break
		}

		next := max(0, end-c.overlap)
		if next <= start {
			break
		}
		start = next
	}
	return chunks
}

func appendChunk(chunks []Chunk, runes []rune, start, end int) []Chunk {
	text := strings.TrimSpace(string(runes[start:end]))
	if text == "" {
		return chunks
	}
	return append(chunks, Chunk{
		Index: len(chunks),
		Start: start,
		End:   end,
		Text:  text,
	})
}
