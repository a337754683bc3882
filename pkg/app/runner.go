package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"linehist/pkg/config"
)

// Runner provides a high-level interface to run a history session
type Runner struct {
	app    *Application
	config config.Config
	logger *slog.Logger

	stdin  *os.File
	stdout io.Writer
}

// NewRunner creates a new application runner
func NewRunner(cfg config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		config: cfg,
		logger: logger,
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// Run starts the session and blocks until it ends. The interactive editor is
// used when stdin is a terminal; otherwise every input line is accepted.
func (r *Runner) Run() error {
	app, err := NewApplication(r.config, WithLogger(r.logger), WithOutput(r.stdout))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	r.app = app

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if term.IsTerminal(int(r.stdin.Fd())) {
		err = r.runInteractive(sigChan)
	} else {
		err = r.runPipe(sigChan)
	}

	// Stop reports save failures as warnings itself
	app.Stop()
	r.printSessionSummary()
	return err
}

func (r *Runner) runInteractive(sigChan <-chan os.Signal) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			screen.PostEvent(tcell.NewEventInterrupt(nil))
		case <-done:
		}
	}()

	return r.app.RunInteractive(screen)
}

func (r *Runner) runPipe(sigChan <-chan os.Signal) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-sigChan:
			r.logger.Debug("interrupted, saving history")
			r.app.Stop()
			os.Exit(130)
		case <-done:
		}
	}()

	return r.app.RunPipe(r.stdin)
}

// printSessionSummary prints a summary of the session
func (r *Runner) printSessionSummary() {
	if r.app == nil {
		return
	}

	h := r.app.History()
	fmt.Fprintf(r.stdout, "\n=== Session Summary ===\n")
	fmt.Fprintf(r.stdout, "History file: %s\n", r.config.HistoryFile)
	fmt.Fprintf(r.stdout, "Lines added: %d\n", r.app.Added())
	fmt.Fprintf(r.stdout, "Entries: %d\n", h.Len())
	fmt.Fprintf(r.stdout, "Size: %s\n", config.FormatSize(h.Size()))
	fmt.Fprintf(r.stdout, "=======================\n")
}
