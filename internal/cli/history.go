package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.aimuz.me/dictate/history"
	"go.aimuz.me/dictate/internal/app"
	"go.aimuz.me/dictate/internal/output"
)

func NewHistoryCmd(deps *Dependencies) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent dictation sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := output.NewFormatter(cmd.OutOrStdout())

			if !deps.Config.History.Enabled {
				formatter.Info("History is disabled. Enable it with history.enabled in the config file")
				return nil
			}

			path, err := app.HistoryPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				formatter.Info("No sessions recorded yet")
				return nil
			}

			store, err := history.Open(path, deps.Config.Retention())
			if err != nil {
				return fmt.Errorf("open history (is dictate running?): %w", err)
			}
			defer store.Close()

			sessions, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				formatter.Info("No sessions recorded yet")
				return nil
			}

			formatter.HistoryHeader()
			for _, s := range sessions {
				formatter.HistoryItem(s)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of sessions to show")
	return cmd
}
