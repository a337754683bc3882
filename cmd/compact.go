package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"linehist/pkg/history"
)

var (
	compactMaxSize    sizeValue
	compactMaxEntries int
)

// compactCmd rewrites the history file within the limits
var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the history file within its limits",
	Long: `Load the history file and rewrite it from scratch, dropping blank and
adjacent duplicate entries and evicting the oldest entries beyond the limits.

The limits default to the configured ones and can be tightened for this run:
  linehist compact --max-entries 500 --max-size 64KiB`,
	Args: cobra.NoArgs,
	RunE: runCompact,
}

func init() {
	compactCmd.Flags().Var(&compactMaxSize, "max-size", "size limit for the rewritten file (e.g. 64KiB)")
	compactCmd.Flags().IntVar(&compactMaxEntries, "max-entries", history.Inherit, "entry limit for the rewritten file")
}

func runCompact(cmd *cobra.Command, args []string) error {
	if compactMaxEntries < history.Inherit {
		return fmt.Errorf("--max-entries cannot be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	h, err := openHistory(cfg)
	if err != nil {
		return err
	}
	before := h.Len()

	// everything loaded is written back
	if err := h.SetOldCount(0); err != nil {
		return err
	}

	opts, err := saveOptions(cfg)
	if err != nil {
		return err
	}
	opts.Append = false
	opts.MaxSize = compactMaxSize.limit()
	opts.MaxEntries = compactMaxEntries
	if err := h.Save(cfg.HistoryFile, opts); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	after, err := openHistory(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Compacted %s: %d -> %d entries\n", cfg.HistoryFile, before, after.Len())
	return nil
}
