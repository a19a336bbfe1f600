// internal/config/database.go
package config

import (
	"fmt"
)

func (d *DatabaseConfig) DSN() string {
	// Single-writer workload; WAL plus a busy timeout keeps concurrent
	// cache reads from erroring out while a filter stage writes.
	return fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on",
		d.Path,
	)
}
