package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/artpar/crudkit/config"
	"github.com/rs/zerolog"
)

func TestHolder_Get(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Database.DSN != ":memory:" {
		t.Errorf("Database.DSN = %s, want :memory:", got.Database.DSN)
	}
	if !filepath.IsAbs(h.Path()) {
		t.Errorf("Path = %s, want absolute", h.Path())
	}
}

func TestHolder_Reload(t *testing.T) {
	restoreLevel(t)
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte(`
database:
  dsn: ":memory:"
logging:
  level: warn
`), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if got := h.Get().Logging.Level; got != "warn" {
		t.Errorf("reloaded Logging.Level = %s, want warn", got)
	}
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %s, want warn", zerolog.GlobalLevel())
	}
}

func TestHolder_OnChange(t *testing.T) {
	restoreLevel(t)
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var got *config.Config
	h.OnChange(func(cfg *config.Config) { got = cfg })

	var outcomes []error
	h.OnReload(func(err error) { outcomes = append(outcomes, err) })

	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if got != h.Get() {
		t.Error("OnChange did not receive the new config")
	}
	if len(outcomes) != 1 || outcomes[0] != nil {
		t.Errorf("OnReload outcomes = %v, want [nil]", outcomes)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var changed bool
	h.OnChange(func(*config.Config) { changed = true })
	var reloadErr error
	h.OnReload(func(err error) { reloadErr = err })

	before := h.Get()
	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := h.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if h.Get() != before {
		t.Error("invalid reload replaced the config")
	}
	if changed {
		t.Error("OnChange called for a failed reload")
	}
	if reloadErr == nil {
		t.Error("OnReload did not receive the error")
	}
}

func TestHolder_WatchFile(t *testing.T) {
	restoreLevel(t)
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var calls int
	h.OnChange(func(*config.Config) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	if err := h.WatchFile(); err != nil {
		t.Fatalf("WatchFile error: %v", err)
	}

	if err := os.WriteFile(path, []byte(`
database:
  dsn: "other.db"
`), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	// Editors may produce several events; wait for the final content.
	deadline := time.Now().Add(2 * time.Second)
	for h.Get().Database.DSN != "other.db" {
		if time.Now().After(deadline) {
			t.Fatalf("after file watch, Database.DSN = %s, want other.db", h.Get().Database.DSN)
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls == 0 {
		t.Error("file watcher did not call OnChange")
	}
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	restoreLevel(t)
	path := writeConfig(t, validConfig())

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}

	wg.Wait()
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, validConfig()), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	h.WatchSignals()
	h.Stop()
	h.Stop()
}

func TestNewHolder_MissingFile(t *testing.T) {
	_, err := config.NewHolder(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("NewHolder error = %v, want not-exist", err)
	}
}

func TestReloadableFields(t *testing.T) {
	reloadable := config.ReloadableFields()
	if len(reloadable) == 0 {
		t.Fatal("no reloadable fields")
	}
	for _, r := range reloadable {
		for _, n := range config.NonReloadableFields() {
			if r == n {
				t.Errorf("%s is both reloadable and non-reloadable", r)
			}
		}
	}
}

func TestRestartRequired(t *testing.T) {
	parse := func(extra string) *config.Config {
		t.Helper()
		cfg, err := config.Parse([]byte(validConfig() + extra))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		return cfg
	}

	base := parse("")

	tests := []struct {
		name  string
		extra string
		want  []string
	}{
		{"identical", "", nil},
		{"port", "server:\n  port: 9090\n", []string{"server"}},
		{"events and metrics", "events:\n  driver: nats\nmetrics:\n  enabled: true\n", []string{"events", "metrics"}},
		{"models", "models:\n  - name: tag\n    fields: [{ name: id, type: integer, primary_key: true }]\n", []string{"models"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := config.RestartRequired(base, parse(tt.extra))
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("RestartRequired = %v, want %v", got, tt.want)
			}
		})
	}

	// A log level change alone needs no restart.
	levelOnly, err := config.Parse([]byte(strings.Replace(validConfig(), "level: info", "level: debug", 1)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := config.RestartRequired(base, levelOnly); len(got) != 0 {
		t.Errorf("RestartRequired = %v, want none", got)
	}
}

func validConfig() string {
	return `
database:
  driver: sqlite
  dsn: ":memory:"
logging:
  level: info
`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func restoreLevel(t *testing.T) {
	t.Helper()
	level := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(level) })
}
