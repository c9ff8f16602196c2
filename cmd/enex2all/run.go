package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	enex2all "github.com/alnah/go-enex2all"
	"github.com/alnah/go-enex2all/internal/config"
)

// Sentinel errors for CLI operations.
var (
	ErrNoInput        = errors.New("no input specified: pass an archive or directory, or set input.defaultPath in the config")
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// buildConfig loads the config file when one is named and layers flag
// overrides on top.
func buildConfig(f *cliFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.config != "" {
		loaded, err := config.LoadConfig(f.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.recursive {
		cfg.Input.Recursive = true
	}
	if f.output != "" {
		cfg.Output.RootDir = f.output
	}
	if len(f.formats) > 0 {
		cfg.Output.Formats = f.formats
	}
	if f.noteWorkers > 0 {
		cfg.Processing.NoteWorkers = f.noteWorkers
	}
	if f.ocrWorkers > 0 {
		cfg.OCR.Workers = f.ocrWorkers
	}
	if f.ocrLang != "" {
		cfg.OCR.Language = f.ocrLang
	}
	if f.noOCR {
		cfg.OCR.Enabled = false
	}
	if f.noFrontMatter {
		cfg.Markdown.AddFrontMatter = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// serviceOptions turns flags that bypass the config into Service options.
func serviceOptions(f *cliFlags) ([]enex2all.Option, error) {
	var opts []enex2all.Option
	if f.timeout != "" {
		d, err := time.ParseDuration(f.timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimeout, f.timeout)
		}
		opts = append(opts, enex2all.WithTimeout(d))
	}
	return opts, nil
}

// run converts every discovered archive and returns the number of notes
// that failed.
func run(ctx context.Context, f *cliFlags, args []string, env *Environment) (int, error) {
	cfg, err := buildConfig(f)
	if err != nil {
		return 0, err
	}

	input := cfg.Input.DefaultPath
	if len(args) > 0 {
		input = args[0]
	}
	if input == "" {
		return 0, ErrNoInput
	}

	archives, err := enex2all.FindArchives(input, cfg.Input.Recursive)
	if err != nil {
		return 0, err
	}

	opts, err := serviceOptions(f)
	if err != nil {
		return 0, err
	}
	runner, err := enex2all.NewRunner(cfg, env.Logger, opts...)
	if err != nil {
		return 0, err
	}
	defer runner.Close()

	failed := 0
	for _, archive := range archives {
		if err := ctx.Err(); err != nil {
			return failed, err
		}

		root := cfg.Output.RootDir
		if root == "" {
			root = filepath.Dir(archive)
		}

		start := env.Now()
		summary, err := runner.RunArchive(ctx, archive, root)
		if err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v\n", archive, err)
			failed++
			continue
		}
		failed += summary.Failed
		printSummary(env, summary, env.Now().Sub(start), f)
	}
	return failed, nil
}

// printSummary writes the per-archive report.
func printSummary(env *Environment, s *enex2all.ArchiveSummary, elapsed time.Duration, f *cliFlags) {
	if f.verbose {
		for _, r := range s.Results {
			switch r.State {
			case enex2all.StateDone:
				fmt.Fprintf(env.Stdout, "  done    %s\n", r.Folder)
			case enex2all.StateSkipped:
				fmt.Fprintf(env.Stdout, "  skipped %s\n", r.Folder)
			default:
				fmt.Fprintf(env.Stdout, "  FAILED  %s: %v\n", r.Folder, r.Err)
			}
		}
	}
	if f.quiet {
		return
	}
	fmt.Fprintf(env.Stdout, "%s: %d notes, %d converted, %d skipped, %d failed (%v)\n",
		s.Archive, s.Total, s.Converted, s.Skipped, s.Failed,
		elapsed.Round(time.Millisecond))
}
