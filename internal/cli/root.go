package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"go.aimuz.me/dictate/config"
	"go.aimuz.me/dictate/internal/version"
)

type Dependencies struct {
	Config   *config.Config
	LogLevel *slog.LevelVar
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	runCmd := NewRunCmd(deps)

	rootCmd := &cobra.Command{
		Use:   "dictate",
		Short: "Dictate into any application",
		Long:  "Double-press a key, speak, and the transcribed text is typed into the focused application. Speech is recognized locally with whisper.cpp or through the OpenAI API.",
		Args:  cobra.NoArgs,
		RunE:  runCmd.RunE,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debug, _ := cmd.Flags().GetBool("debug"); debug && deps.LogLevel != nil {
				deps.LogLevel.Set(slog.LevelDebug)
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.Flags().AddFlagSet(runCmd.Flags())

	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(version.Full() + "\n")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(NewDoctorCmd(deps))
	rootCmd.AddCommand(NewHistoryCmd(deps))
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
