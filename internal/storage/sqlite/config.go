package sqlite

import (
	"fmt"
	"strings"
)

type Config struct {
	DatabasePath string
	// BusyTimeoutMS is how long a writer waits on a locked database
	BusyTimeoutMS int
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.BusyTimeoutMS <= 0 {
		c.BusyTimeoutMS = 5000
	}
	return nil
}

func (c *Config) InMemory() bool {
	return c.DatabasePath == ":memory:" || strings.Contains(c.DatabasePath, "mode=memory")
}

// GetConnectionString returns the go-sqlite3 DSN
func (c *Config) GetConnectionString() string {
	if c.InMemory() {
		return c.DatabasePath
	}
	sep := "?"
	if strings.Contains(c.DatabasePath, "?") {
		sep = "&"
	}
	return fmt.Sprintf("file:%s%s_busy_timeout=%d&_journal_mode=WAL", strings.TrimPrefix(c.DatabasePath, "file:"), sep, c.BusyTimeoutMS)
}

func DefaultConfig() *Config {
	return &Config{
		DatabasePath:  "./crm_connect.db",
		BusyTimeoutMS: 5000,
	}
}
