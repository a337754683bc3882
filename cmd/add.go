package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// addCmd appends entries to the history file
var addCmd = &cobra.Command{
	Use:   "add <entry>...",
	Short: "Add entries to the history file",
	Long: `Add one or more entries to the history file.

Entries are filtered and bounded like interactive input and merged with
whatever other processes have written since.

Example:
  linehist add "make test" "git status"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	h, err := openHistory(cfg)
	if err != nil {
		return err
	}

	added := 0
	filters := addOptions(cfg)
	for _, entry := range args {
		if h.AddWith(entry, filters) {
			added++
		}
	}

	opts, err := saveOptions(cfg)
	if err != nil {
		return err
	}
	if err := h.Save(cfg.HistoryFile, opts); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	if verbose {
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d of %d entries to %s\n", added, len(args), cfg.HistoryFile)
	}
	return nil
}
