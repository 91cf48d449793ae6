package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jamesainslie/pbmirror/pkg/pbmirror/config"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/history"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/ledger"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/logging"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/output"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/pipeline"
	"github.com/jamesainslie/pbmirror/pkg/pbmirror/progress"
)

// session holds the resources one command needs to drive a pipeline.
type session struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	ledger   *ledger.Ledger
}

// sessionOptions tweaks how a session is opened.
type sessionOptions struct {
	// full disables the ledger so every library is extracted.
	full bool
}

// openSession builds a pipeline from the loaded configuration.
func openSession(opts sessionOptions) (*session, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: c}
	popts := pipeline.Options{Config: c}

	if !quiet {
		popts.Bar = progress.NewBar(logging.ConsoleWriter())
	}

	if c.History.Enabled {
		h, err := history.New(c.History.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize history: %w", err)
		}
		popts.History = h
	}

	if c.Ledger.Enabled && !opts.full {
		l, err := ledger.Open(c.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		s.ledger = l
		popts.Ledger = l
	}

	s.pipeline = pipeline.New(popts)
	return s, nil
}

// Close releases the ledger, if one was opened.
func (s *session) Close() error {
	if s.ledger != nil {
		return s.ledger.Close()
	}
	return nil
}

// report prints the run summaries and the count of problems logged since
// the previous report, and returns errFailed when the run recorded any
// failure.
func report(out *pipeline.Outcome, runErr error) error {
	if out != nil && !quiet {
		if len(out.Sync) > 0 {
			fmt.Print(output.SyncSummary(out.Sync))
		}
		if out.Report != nil {
			fmt.Print(output.ExtractSummary(out.Report, out.ReportPath))
		}
		for _, h := range out.Entry.Hooks {
			status := output.SuccessStyle.Render("ok")
			if h.ExitCode != 0 || h.Error != "" {
				status = output.ErrorStyle.Render(fmt.Sprintf("exit code %d", h.ExitCode))
			}
			fmt.Printf("  hook %s  %s\n", h.Name, status)
		}
	}

	if n := takeProblems(); n > 0 && !quiet {
		fmt.Fprintf(os.Stderr, "%d warnings or errors were logged; see %s\n", n, logPath())
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			printInfo("Interrupted.")
		}
		return runErr
	}
	if out != nil && out.Entry.Failed() {
		return errFailed
	}
	return nil
}

// takeProblems returns the number of warnings and errors logged since the
// last call and resets the count, so each watch resync reports its own.
func takeProblems() int {
	problems := logging.Problems()
	n := problems.Count(logging.LevelWarn)
	problems.Clear()
	return n
}

func logPath() string {
	if cfg != nil && cfg.Logging.Path != "" {
		return cfg.Logging.Path
	}
	return config.DefaultLogPath()
}
