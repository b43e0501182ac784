package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"validity.app/auditor/common/logger"
	"validity.app/auditor/core/config"
	"validity.app/auditor/internal/bootstrap"
	"validity.app/auditor/internal/model"
)

var analyzeFlags struct {
	timeout   time.Duration
	chunkSize int
	overlap   int
	pretty    bool
	online    bool
}

// errAnalysisFailed makes the process exit non-zero after the result was printed.
var errAnalysisFailed = errors.New("analysis did not succeed")

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Analyze a document and print the result as JSON",
	Long: `Analyze reads a document from a file, or from stdin when the argument is "-",
and prints the analysis result. Oracle settings come from the environment
(ORACLE_PROVIDER, ORACLE_API_KEY, ORACLE_MODEL, ...).

By default the command does not touch Redis or Postgres. Pass --online to use
the configured result cache and record oracle calls.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.DurationVar(&analyzeFlags.timeout, "timeout", 0, "Analysis budget (default: ANALYSIS_TIMEOUT)")
	f.IntVar(&analyzeFlags.chunkSize, "chunk-size", 0, "Characters per chunk (default: ANALYSIS_CHUNK_SIZE)")
	f.IntVar(&analyzeFlags.overlap, "overlap", -1, "Characters shared by adjacent chunks (default: ANALYSIS_CHUNK_OVERLAP)")
	f.BoolVar(&analyzeFlags.pretty, "pretty", false, "Indent the JSON output")
	f.BoolVar(&analyzeFlags.online, "online", false, "Use configured Redis and Postgres")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	text, err := readDocument(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := config.Load(config.ServiceTypeCLI)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyAnalyzeFlags(&cfg)
	slog.SetDefault(slog.New(logger.NewHandler(cfg, cmd.ErrOrStderr())))

	var opts []bootstrap.Option
	if !analyzeFlags.online {
		opts = append(opts, bootstrap.Offline())
	}
	app, err := bootstrap.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer app.Close()

	result := app.Services.Analysis().Analyze(ctx, text, analyzeFlags.timeout)
	if err := writeResult(cmd.OutOrStdout(), result, analyzeFlags.pretty); err != nil {
		return err
	}
	if !result.Success {
		return errAnalysisFailed
	}
	return nil
}

func applyAnalyzeFlags(cfg *config.Config) {
	if analyzeFlags.chunkSize > 0 {
		cfg.Analysis.ChunkSize = analyzeFlags.chunkSize
	}
	if analyzeFlags.overlap >= 0 {
		cfg.Analysis.ChunkOverlap = analyzeFlags.overlap
	}
	// Logs go to stderr and stay quiet unless asked for.
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
}

func readDocument(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return string(data), nil
}

func writeResult(w io.Writer, result *model.Result, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
