package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"linehist/pkg/app"
)

// shellCmd runs an interactive session
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive prompt with history recall",
	Long: `Start an interactive prompt backed by the history file.

Use the up and down arrows to recall earlier entries. Every accepted line is
added to the history and merged into the history file, so several shells can
share one file. Lines starting with ':' are session commands (:help lists them).

When stdin is not a terminal every input line is accepted in turn.

Examples:
  # Start a shell on the default history file
  linehist shell

  # Keep logs out of the way of the prompt
  linehist shell --log-file /tmp/linehist.log`,
	Aliases: []string{"repl"},
	Args:    cobra.NoArgs,
	RunE:    runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return app.NewRunner(cfg, slog.Default()).Run()
}
