package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// TaskLogPath returns the path to the task log file.
func TaskLogPath(dataDir, taskID string) string {
	return filepath.Join(dataDir, "logs", "task-"+SafeFileName(taskID)+".log")
}

// GlobalLogPath returns the path to the global log file.
func GlobalLogPath(dataDir string) string {
	return filepath.Join(dataDir, "logs", "promptbench.log")
}

// KVStorePath returns the path to the key-value store file.
func KVStorePath(dataDir string) string {
	return filepath.Join(dataDir, "storage.json")
}

// ProgressDir returns the directory holding JSON progress snapshots.
func ProgressDir(dataDir string) string {
	return filepath.Join(dataDir, "progress")
}

// SQLitePath returns the path to the SQLite progress database.
func SQLitePath(dataDir string) string {
	return filepath.Join(dataDir, "progress.db")
}

// SafeFileName maps a task ID onto a single path element.
// Bytes outside [A-Za-z0-9._-] are written as ~XX so distinct IDs never collide.
func SafeFileName(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		case c == '.' && i > 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "~%02x", c)
		}
	}
	if b.Len() == 0 {
		return "~"
	}
	return b.String()
}
