package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `
telegram:
  token: "123:abc"
  chat_id: -1001
logging:
  level: info
  console: true
  file:
    enabled: false
    path: ""
monitor:
  interval: "45m"
  fetch_timeout: "8s"
  notes_max_len: 500
  apps:
    - id: "544007664"
      label: "YouTube"
    - id: "389801252"
storage:
  path: "./appwatch.db"
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.ChatID != -1001 {
		t.Fatalf("chat_id = %d", cfg.Telegram.ChatID)
	}
	ids := cfg.AppIDs()
	if len(ids) != 2 || ids[0] != "544007664" || ids[1] != "389801252" {
		t.Fatalf("AppIDs = %v", ids)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get returned a different config")
	}
	d, err := ParseDurationOrDefault("monitor.interval", cfg.Monitor.Interval, 0)
	if err != nil || d.Minutes() != 45 {
		t.Fatalf("interval = %v err = %v", d, err)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", sampleYAML+"\nbogus_key: 1\n"))
	if _, err := m.Load(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate string
		wantIn string
	}{
		{"missing token", strings.Replace(sampleYAML, `token: "123:abc"`, `token: ""`, 1), "telegram.token"},
		{"no apps", strings.Split(sampleYAML, "  apps:")[0] + "  apps: []\nstorage:\n  path: x\n", "monitor.apps"},
		{"duplicate app", strings.Replace(sampleYAML, `- id: "389801252"`, `- id: "544007664"`, 1), "listed twice"},
		{"bad duration", strings.Replace(sampleYAML, `interval: "45m"`, `interval: "soon"`, 1), "monitor.interval"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := NewManager(writeConfig(t, "config.yaml", c.mutate))
			_, err := m.Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), c.wantIn) {
				t.Fatalf("error %q does not mention %q", err, c.wantIn)
			}
		})
	}
}
