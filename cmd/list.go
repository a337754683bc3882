package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"linehist/pkg/config"
	"linehist/pkg/history"
)

var (
	listLast     int
	listEscaped  bool
	listNumbered bool
	listStats    bool
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List history entries",
	Long: `List the entries of the history file, oldest first.

Multi-line entries are printed as is unless --escaped is given, in which case
each entry is printed in its on-disk form, one per line.`,
	Aliases: []string{"ls", "show"},
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLast, "last", "n", 0, "only show the N most recent entries")
	listCmd.Flags().BoolVarP(&listEscaped, "escaped", "e", false, "print entries in their escaped file form")
	listCmd.Flags().BoolVar(&listNumbered, "numbered", false, "prefix entries with their position")
	listCmd.Flags().BoolVarP(&listStats, "stats", "s", false, "print entry count and size instead of entries")
}

func runList(cmd *cobra.Command, args []string) error {
	if listLast < 0 {
		return fmt.Errorf("--last cannot be negative")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	h, err := openHistory(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if listStats {
		printStats(out, cfg, h)
		return nil
	}

	contents := h.Contents()
	start := 0
	if listLast > 0 && listLast < len(contents) {
		start = len(contents) - listLast
	}

	for i := start; i < len(contents); i++ {
		entry := contents[i]
		if listEscaped {
			entry = history.Escape(entry)
		}
		if listNumbered {
			fmt.Fprintf(out, "%5d  %s\n", i+1, entry)
		} else {
			fmt.Fprintln(out, entry)
		}
	}
	return nil
}

func printStats(out io.Writer, cfg config.Config, h *history.History) {
	fmt.Fprintf(out, "History file: %s\n", cfg.HistoryFile)
	fmt.Fprintf(out, "Entries: %d (limit %s)\n", h.Len(), entryLimit(h.MaxEntries()))
	fmt.Fprintf(out, "Size: %s (limit %s)\n", config.FormatSize(h.Size()), config.FormatSize(h.MaxSize()))
}

func entryLimit(n int) string {
	if n == history.Unbounded {
		return config.Unlimited
	}
	return fmt.Sprintf("%d", n)
}
