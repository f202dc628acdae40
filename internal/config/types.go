package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Monitor   MonitorConfig   `json:"monitor"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler,omitempty"`
}

type TelegramConfig struct {
	Token  string `json:"token"`
	ChatID int64  `json:"chat_id"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// MonitorConfig controls the polling cycle.
//
// All durations are Go duration strings (e.g. "30s", "60m").
//
// Defaults (when fields are omitted/zero):
//   - interval: "60m"
//   - fetch_timeout: "10s"
//   - fetch_workers: 4
//   - notes_max_len: 500
//   - country: "us"
type MonitorConfig struct {
	Interval     string `json:"interval,omitempty"`
	FetchTimeout string `json:"fetch_timeout,omitempty"`
	FetchWorkers int    `json:"fetch_workers,omitempty"`
	NotesMaxLen  int    `json:"notes_max_len,omitempty"`
	Country      string `json:"country,omitempty"`

	// ScrapeNotes enables scraping the public store page for release
	// notes when the lookup API returns none.
	ScrapeNotes bool `json:"scrape_notes,omitempty"`

	// Apps is the tracked list. Its order is the order app blocks
	// appear in the notification digest.
	Apps []AppRef `json:"apps"`
}

// AppRef identifies one tracked application.
type AppRef struct {
	ID string `json:"id"`
	// Label is optional and only used in logs; display names come from
	// the catalog metadata.
	Label string `json:"label,omitempty"`
}

// StorageConfig controls the version store.
type StorageConfig struct {
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string
}

// SchedulerConfig controls the cycle trigger.
type SchedulerConfig struct {
	// Trigger timezone (IANA TZ, e.g. "Asia/Jakarta"). Empty means local.
	Timezone string `json:"timezone,omitempty"`
}

// Validate checks invariants that can be verified without I/O.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if len(c.Monitor.Apps) == 0 {
		return fmt.Errorf("monitor.apps must list at least one app")
	}
	seen := make(map[string]struct{}, len(c.Monitor.Apps))
	for i, a := range c.Monitor.Apps {
		id := strings.TrimSpace(a.ID)
		if id == "" {
			return fmt.Errorf("monitor.apps[%d].id is empty", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("monitor.apps[%d].id %q is listed twice", i, id)
		}
		seen[id] = struct{}{}
	}
	if _, err := ParseDurationField("monitor.interval", c.Monitor.Interval); err != nil {
		return err
	}
	if _, err := ParseDurationField("monitor.fetch_timeout", c.Monitor.FetchTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if c.Monitor.NotesMaxLen < 0 {
		return fmt.Errorf("monitor.notes_max_len must be >= 0")
	}
	return nil
}

// AppIDs returns the tracked ids in configured order.
func (c *Config) AppIDs() []string {
	ids := make([]string, 0, len(c.Monitor.Apps))
	for _, a := range c.Monitor.Apps {
		ids = append(ids, strings.TrimSpace(a.ID))
	}
	return ids
}
