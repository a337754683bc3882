// Package app provides the main application controller
package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"linehist/pkg/config"
	"linehist/pkg/editor"
	"linehist/pkg/history"
)

// Application owns one history for the lifetime of a session: it loads the
// history file on Start, adds every accepted line and saves on Stop.
type Application struct {
	config  config.Config
	history *history.History
	logger  *slog.Logger
	out     io.Writer

	// guards history against the signal handler calling Stop
	mu sync.Mutex

	isRunning bool
	added     int
}

// Option configures an Application
type Option func(*Application)

// WithLogger sets the application logger
func WithLogger(logger *slog.Logger) Option {
	return func(app *Application) {
		app.logger = logger
	}
}

// WithOutput sets where pipe mode output and warnings are written
func WithOutput(w io.Writer) Option {
	return func(app *Application) {
		app.out = w
	}
}

// NewApplication creates a new application instance
func NewApplication(cfg config.Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{
		config: cfg,
		logger: slog.Default(),
		out:    os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}

	maxSize, maxEntries, err := cfg.Limits()
	if err != nil {
		return nil, err
	}

	app.history, err = history.New(nil,
		history.WithMaxSize(maxSize),
		history.WithMaxEntries(maxEntries),
		history.WithLogger(app.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create history: %w", err)
	}

	return app, nil
}

// History returns the session history
func (app *Application) History() *history.History {
	return app.history
}

// Start loads the history file. A failure is reported as a warning and the
// session starts with an empty history.
func (app *Application) Start() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.isRunning {
		return fmt.Errorf("application is already running")
	}

	if err := app.history.Load(app.config.HistoryFile, app.loadOptions()); err != nil {
		app.warn("could not load history", err)
	}

	app.isRunning = true
	app.logger.Debug("session started", "history_file", app.config.HistoryFile, "entries", app.history.Len())
	return nil
}

// Stop saves the history. It is safe to call more than once.
func (app *Application) Stop() error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if !app.isRunning {
		return nil
	}
	app.isRunning = false

	if err := app.save(); err != nil {
		app.warn("could not save history", err)
		return err
	}

	app.logger.Debug("session stopped", "added", app.added, "entries", app.history.Len())
	return nil
}

// IsRunning reports whether the session has been started and not stopped
func (app *Application) IsRunning() bool {
	app.mu.Lock()
	defer app.mu.Unlock()

	return app.isRunning
}

// Added returns how many lines were accepted during the session
func (app *Application) Added() int {
	app.mu.Lock()
	defer app.mu.Unlock()

	return app.added
}

// Accept handles one input line. Lines starting with ':' are session
// commands; everything else is added to the history. It returns the lines
// to show the user and whether the session should end.
func (app *Application) Accept(line string) ([]string, bool) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if strings.HasPrefix(line, ":") {
		return app.command(strings.Fields(line[1:]))
	}

	opts := history.AddOptions{SkipEmpty: app.config.SkipEmpty, SkipDup: app.config.SkipDup}
	if app.history.AddWith(line, opts) {
		app.added++
	}

	if app.config.SaveEveryLine {
		if err := app.save(); err != nil {
			app.warn("could not save history", err)
			return []string{fmt.Sprintf("warning: could not save history: %v", err)}, false
		}
	}
	return nil, false
}

func (app *Application) command(args []string) ([]string, bool) {
	if len(args) == 0 {
		args = []string{"help"}
	}

	switch args[0] {
	case "help", "?":
		return []string{"commands: :history [n], :save, :clear, :stats, :quit"}, false
	case "quit", "q", "exit":
		return nil, true
	case "history", "h":
		n := app.history.Len()
		if len(args) > 1 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil || parsed < 0 {
				return []string{fmt.Sprintf("invalid count: %s", args[1])}, false
			}
			n = parsed
		}
		return app.listing(n), false
	case "save":
		if err := app.save(); err != nil {
			return []string{fmt.Sprintf("warning: could not save history: %v", err)}, false
		}
		return []string{fmt.Sprintf("saved %d entries to %s", app.history.Len(), app.config.HistoryFile)}, false
	case "clear":
		app.history.Clear()
		return []string{"history cleared"}, false
	case "stats":
		return []string{
			fmt.Sprintf("entries: %d/%d", app.history.Len(), app.history.MaxEntries()),
			fmt.Sprintf("size: %s/%s", config.FormatSize(app.history.Size()), config.FormatSize(app.history.MaxSize())),
			fmt.Sprintf("unsaved: %d", app.history.Len()-app.history.OldCount()),
		}, false
	default:
		return []string{fmt.Sprintf("unknown command: %s", args[0])}, false
	}
}

// listing numbers the n most recent entries, oldest first
func (app *Application) listing(n int) []string {
	contents := app.history.Contents()
	start := max(len(contents)-n, 0)

	lines := make([]string, 0, len(contents)-start)
	for i := start; i < len(contents); i++ {
		lines = append(lines, fmt.Sprintf("%5d  %s", i+1, history.Escape(contents[i])))
	}
	return lines
}

// RunInteractive reads lines from a line editor on screen until the user
// quits or the screen is interrupted.
func (app *Application) RunInteractive(screen tcell.Screen) error {
	ed := editor.New(screen, app.history, app.config.Prompt)
	ed.Println("history: " + app.config.HistoryFile + "  (:quit to exit, :help for commands)")

	for {
		line, err := ed.ReadLine()
		if errors.Is(err, editor.ErrInterrupted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		replies, quit := app.Accept(line)
		for _, reply := range replies {
			ed.Println(reply)
		}
		if quit {
			return nil
		}
	}
}

// RunPipe accepts every line of r, for use when stdin is not a terminal
func (app *Application) RunPipe(r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			replies, quit := app.Accept(strings.TrimSuffix(line, "\n"))
			for _, reply := range replies {
				fmt.Fprintln(app.out, reply)
			}
			if quit {
				return nil
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}
}

func (app *Application) save() error {
	return app.history.Save(app.config.HistoryFile, app.saveOptions())
}

func (app *Application) loadOptions() history.LoadOptions {
	opts := history.DefaultLoadOptions()
	opts.SkipEmpty = app.config.SkipEmpty
	opts.SkipDup = app.config.SkipDup
	return opts
}

func (app *Application) saveOptions() history.SaveOptions {
	opts := history.DefaultSaveOptions()
	opts.SkipEmpty = app.config.SkipEmpty
	opts.SkipDup = app.config.SkipDup
	opts.Append = app.config.Append
	if mode, err := app.config.Mode(); err == nil {
		opts.Perm = mode
	}
	return opts
}

// warn reports an I/O problem without failing the session
func (app *Application) warn(msg string, err error) {
	app.logger.Warn(msg, "path", app.config.HistoryFile, "error", err)
}
