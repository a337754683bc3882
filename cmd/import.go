package cmd

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"linehist/pkg/history"
)

var importEscaped bool

// importCmd adds the lines of a text file to the history
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import entries from a text file",
	Long: `Add every line of a text file to the history file, oldest first.

With --escaped the file is read in history file encoding, so entries from
another history file keep their embedded newlines.

Example:
  linehist import ~/.bash_history`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVarP(&importEscaped, "escaped", "e", false, "the file uses history file escaping")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	h, err := openHistory(cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	imported, err := importLines(h, f, addOptions(cfg), importEscaped)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}

	opts, err := saveOptions(cfg)
	if err != nil {
		return err
	}
	if err := h.Save(cfg.HistoryFile, opts); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries into %s\n", imported, cfg.HistoryFile)
	return nil
}

// importLines adds each line of r to h and returns how many were kept
func importLines(h *history.History, r io.Reader, filters history.AddOptions, escaped bool) (int, error) {
	reader := bufio.NewReader(r)
	imported, lineNo := 0, 0
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lineNo++
			if importLine(h, strings.TrimSuffix(line, "\n"), lineNo, filters, escaped) {
				imported++
			}
		}
		if err == io.EOF {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
	}
}

// importLine adds one line, decoding it first when escaped is set
func importLine(h *history.History, line string, lineNo int, filters history.AddOptions, escaped bool) bool {
	if escaped {
		text, _, err := history.Unescape(line)
		if err != nil {
			slog.Warn("skipping undecodable line", "line", lineNo, "error", err)
			return false
		}
		line = text
	}
	return h.AddWith(line, filters)
}
