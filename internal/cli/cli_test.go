package cli

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"go.aimuz.me/dictate/config"
	"go.aimuz.me/dictate/history"
	"go.aimuz.me/dictate/internal/types"
	"go.aimuz.me/dictate/internal/version"
)

func execute(t *testing.T, deps *Dependencies, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, &Dependencies{Config: config.Default()}, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) != version.Full() {
		t.Errorf("version output = %q, want %q", out, version.Full())
	}
}

func TestSubcommands(t *testing.T) {
	cmd := NewRootCmd(&Dependencies{Config: config.Default()})
	for _, name := range []string{"run", "doctor", "history", "version"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("Find(%q) = %v, %v", name, c, err)
		}
	}
	for _, flag := range []string{"headless", "mode", "language"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("root command lacks --%s", flag)
		}
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown mode", []string{"run", "--headless", "--mode", "live"}},
		{"bad language", []string{"run", "--headless", "--language", "Polish"}},
		{"root unknown mode", []string{"--headless", "--mode", "live"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, &Dependencies{Config: config.Default()}, tt.args...); err == nil {
				t.Errorf("execute(%v) succeeded", tt.args)
			}
		})
	}
}

func TestDebugFlag(t *testing.T) {
	var level slog.LevelVar
	level.Set(slog.LevelInfo)
	if _, err := execute(t, &Dependencies{Config: config.Default(), LogLevel: &level}, "--debug", "version"); err != nil {
		t.Fatalf("execute error = %v", err)
	}
	if level.Level() != slog.LevelDebug {
		t.Errorf("level = %v, want debug", level.Level())
	}
}

func TestHistory(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	deps := &Dependencies{Config: config.Default()}

	out, err := execute(t, deps, "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "No sessions recorded yet") {
		t.Errorf("empty history output = %q", out)
	}

	dir, err := config.Dir()
	if err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(filepath.Join(dir, "history"), deps.Config.Retention())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for i, text := range []string{"pierwsza notatka", "druga notatka"} {
		err := store.Put(types.SessionSummary{
			ID:        text,
			Mode:      types.ModeStreaming,
			Language:  "pl",
			Text:      text,
			StartedAt: int64(1_700_000_000_000 + i*60_000),
			EndedAt:   int64(1_700_000_005_000 + i*60_000),
		})
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, deps, "history", "-n", "1")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "druga notatka") {
		t.Errorf("output missing newest session:\n%s", out)
	}
	if strings.Contains(out, "pierwsza notatka") {
		t.Errorf("output exceeds limit:\n%s", out)
	}
}

func TestHistoryDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.History.Enabled = false
	out, err := execute(t, &Dependencies{Config: cfg}, "history")
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "disabled") {
		t.Errorf("output = %q", out)
	}
}
