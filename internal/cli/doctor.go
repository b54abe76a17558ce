package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"go.aimuz.me/dictate/audiocapture"
	"go.aimuz.me/dictate/hotkey"
	"go.aimuz.me/dictate/inject"
	"go.aimuz.me/dictate/internal/app"
	"go.aimuz.me/dictate/internal/output"
)

// silenceRMS is the level below which the microphone is considered muted.
const silenceRMS = 0.0005

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	var listen time.Duration

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := output.NewFormatter(cmd.OutOrStdout())
			cfg := deps.Config
			ok := true

			if err := cfg.Validate(); err != nil {
				f.SetupCheck("Config", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Config", true, fmt.Sprintf("%s mode, language %s", cfg.Mode, cfg.Language))
			}

			st := app.CheckEngine(cfg.Engine)
			detail := st.Provider
			if st.Path != "" {
				detail += " (" + st.Path + ")"
			}
			if st.Ready {
				f.SetupCheck("Speech engine", true, detail)
			} else {
				f.SetupCheck("Speech engine", false, st.Message)
				ok = false
			}

			if level, err := probeMicrophone(listen); err != nil {
				f.SetupCheck("Microphone", false, err.Error())
				ok = false
			} else if level < silenceRMS {
				f.SetupCheck("Microphone", false, fmt.Sprintf("no signal in %s, check input volume and permission", listen))
				ok = false
			} else {
				f.SetupCheck("Microphone", true, fmt.Sprintf("level %.4f", level))
			}

			if codes, err := hotkey.ParseKey(cfg.Hotkey.Key); err != nil {
				f.SetupCheck("Hotkey", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Hotkey", true, fmt.Sprintf("double-press %s within %dms (codes %s)",
					cfg.Hotkey.Key, cfg.Hotkey.WindowMS, formatCodes(codes)))
			}

			if _, err := inject.New(cfg.Inject.Method); err != nil {
				f.SetupCheck("Text injection", false, err.Error())
				ok = false
			} else {
				f.SetupCheck("Text injection", true, cfg.Inject.Method)
			}

			if cfg.History.Enabled {
				path, _ := app.HistoryPath()
				f.SetupCheck("History", true, fmt.Sprintf("%s, kept %d days", path, cfg.History.RetentionDays))
			}

			if ok {
				f.Success("\nAll prerequisites met. Double-press to dictate!")
			} else {
				f.Warning("\nSome prerequisites are missing.")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&listen, "listen", time.Second, "how long to sample the microphone")
	return cmd
}

// probeMicrophone records for d and returns the signal level.
func probeMicrophone(d time.Duration) (float64, error) {
	capture := audiocapture.New(audiocapture.DefaultConfig(), audiocapture.NewPortAudioDevice())
	if err := capture.Start(); err != nil {
		return 0, err
	}
	time.Sleep(d)
	snap, err := capture.Stop()
	if err != nil {
		return 0, err
	}
	return audiocapture.RMS(snap.Samples()), nil
}

func formatCodes(codes []uint16) string {
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = fmt.Sprint(c)
	}
	return strings.Join(parts, ", ")
}
