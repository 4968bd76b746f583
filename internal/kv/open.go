package kv

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open returns the configured backend rooted at dataDir.
func Open(backend, dataDir string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dataDir, "state"))
	case BackendSQLite:
		if err := ensureDir(dataDir); err != nil {
			return nil, err
		}
		return NewSQLiteStore(filepath.Join(dataDir, "larder.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
