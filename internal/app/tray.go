package app

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/wailsapp/wails/v3/pkg/application"

	"go.aimuz.me/dictate/internal/types"
)

var (
	//go:embed icons/idle.png
	iconIdle []byte
	//go:embed icons/recording.png
	iconRecording []byte
)

// tray is the system tray menu. It reflects the pipeline status.
type tray struct {
	systray *application.SystemTray
	menu    *application.Menu
	status  *application.MenuItem
	toggle  *application.MenuItem
	modes   map[types.Mode]*application.MenuItem
}

func newTray(app *application.App, s *Service) *tray {
	t := &tray{
		systray: app.SystemTray.New(),
		menu:    app.NewMenu(),
		modes:   make(map[types.Mode]*application.MenuItem),
	}
	t.systray.SetIcon(iconIdle)

	t.status = t.menu.Add(statusLabel(types.StatusIdle)).SetEnabled(false)
	t.toggle = t.menu.Add(toggleLabel(types.StatusIdle)).OnClick(func(*application.Context) {
		s.ToggleRecording()
	})
	t.menu.AddSeparator()

	// Mode submenu with radio buttons
	modeMenu := t.menu.AddSubmenu("Mode")
	current := s.GetSettings().Mode
	for _, m := range []types.Mode{types.ModeStreaming, types.ModeBatch} {
		mode := m
		t.modes[mode] = modeMenu.AddRadio(modeLabel(mode), mode == current).OnClick(func(*application.Context) {
			st := s.GetSettings()
			st.Mode = mode
			if err := s.UpdateSettings(st); err != nil {
				slog.Error("set mode from tray", "mode", mode, "error", err)
				s.PublishError(err.Error())
			}
		})
	}

	t.menu.AddSeparator()
	t.menu.Add("Quit").
		SetAccelerator("CmdOrCtrl+Q").
		OnClick(func(*application.Context) {
			s.Shutdown()
			app.Quit()
		})

	t.systray.SetMenu(t.menu)
	return t
}

func (t *tray) setStatus(st types.Status) {
	t.status.SetLabel(statusLabel(st))
	t.toggle.SetLabel(toggleLabel(st))
	t.toggle.SetEnabled(st != types.StatusTranscribing)
	if st == types.StatusIdle {
		t.systray.SetIcon(iconIdle)
	} else {
		t.systray.SetIcon(iconRecording)
	}
	t.menu.Update()
}

func (t *tray) setMode(mode types.Mode) {
	for m, item := range t.modes {
		item.SetChecked(m == mode)
	}
	t.menu.Update()
}

func statusLabel(st types.Status) string {
	switch st {
	case types.StatusRecording:
		return "● Recording"
	case types.StatusTranscribing:
		return "Transcribing…"
	default:
		return "Idle"
	}
}

func toggleLabel(st types.Status) string {
	if st == types.StatusIdle {
		return "Start dictation"
	}
	return "Stop dictation"
}

func modeLabel(m types.Mode) string {
	if m == types.ModeBatch {
		return "Batch (after recording)"
	}
	return "Streaming (while speaking)"
}

// RunTray runs s as a tray application until the user quits or ctx is done.
func RunTray(ctx context.Context, s *Service) error {
	app := application.New(application.Options{
		Name:        "Dictate",
		Description: "Voice dictation into any application",
		Services: []application.Service{
			application.NewService(s),
		},
		Mac: application.MacOptions{
			// No windows; the tray keeps the app alive
			ApplicationShouldTerminateAfterLastWindowClosed: false,
		},
	})
	s.app = app
	s.tray = newTray(app, s)

	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Shutdown()

	go func() {
		<-ctx.Done()
		app.Quit()
	}()

	if err := app.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}
	return nil
}
