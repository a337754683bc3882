package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"linehist/pkg/config"
	"linehist/pkg/history"
)

var (
	// Root command flags
	verbose     bool
	configPath  string
	historyFile string
	logFile     string

	// logOutput is the open --log-file, closed by Execute
	logOutput *os.File

	// Root command
	rootCmd = &cobra.Command{
		Use:               "linehist",
		Short:             "A bounded, shareable line editor history",
		Version:           "1.0.0",
		Run:               runRoot,
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: setupLogging,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	err := rootCmd.Execute()
	if logOutput != nil {
		logOutput.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVarP(&historyFile, "file", "f", "", "history file, overrides the config")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	// Add subcommands
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(configCmd)
}

// runRoot shows help when no subcommand is given
func runRoot(cmd *cobra.Command, args []string) {
	cmd.Help()
}

// setupLogging installs the default slog logger from the flags and config
func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if cfg, err := config.Load(resolvedConfigPath()); err == nil {
		level = parseLevel(cfg.LogLevel)
	}
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = cmd.ErrOrStderr()
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		if logOutput != nil {
			logOutput.Close()
		}
		logOutput = f
		w = f
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return nil
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// loadConfig reads the config file and applies the --file override
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return cfg, err
	}
	if historyFile != "" {
		cfg.HistoryFile = historyFile
	}
	return cfg, nil
}

// openHistory creates a history from cfg and loads the history file into it
func openHistory(cfg config.Config) (*history.History, error) {
	maxSize, maxEntries, err := cfg.Limits()
	if err != nil {
		return nil, err
	}

	h, err := history.New(nil, history.WithMaxSize(maxSize), history.WithMaxEntries(maxEntries))
	if err != nil {
		return nil, err
	}

	opts := history.DefaultLoadOptions()
	opts.SkipEmpty = cfg.SkipEmpty
	opts.SkipDup = cfg.SkipDup
	if err := h.Load(cfg.HistoryFile, opts); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return h, nil
}

// addOptions returns the entry filters described by cfg
func addOptions(cfg config.Config) history.AddOptions {
	return history.AddOptions{SkipEmpty: cfg.SkipEmpty, SkipDup: cfg.SkipDup}
}

// saveOptions builds the merge-on-save options described by cfg
func saveOptions(cfg config.Config) (history.SaveOptions, error) {
	opts := history.DefaultSaveOptions()
	opts.SkipEmpty = cfg.SkipEmpty
	opts.SkipDup = cfg.SkipDup
	opts.Append = cfg.Append

	mode, err := cfg.Mode()
	if err != nil {
		return opts, err
	}
	opts.Perm = mode
	return opts, nil
}
