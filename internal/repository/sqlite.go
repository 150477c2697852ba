package repository

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/opensource-finance/cropadvisor/internal/domain"
	_ "modernc.org/sqlite"
)

// defaultSQLitePath is the catalog database used when none is configured.
const defaultSQLitePath = "./cropadvisor.db"

// sqliteDSN returns the modernc.org/sqlite DSN for the catalog database,
// creating its parent directory. The catalog is read far more often than
// written, so the file runs in WAL mode and writers wait instead of failing.
func sqliteDSN(cfg domain.RepositoryConfig) (string, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = defaultSQLitePath
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	return fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path), nil
}
