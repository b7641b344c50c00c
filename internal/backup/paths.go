package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// FilePrefix prefixes every snapshot filename.
const FilePrefix = "juddesk_"

// maxNameLen bounds accepted backup filenames.
const maxNameLen = 64

// namePattern matches juddesk_<ISO8601 with ':' and '.' replaced by '-'>.json
// and nothing else. Anything that fails it is rejected before any filesystem
// call — this is the primary defense against path traversal.
var namePattern = regexp.MustCompile(
	`^juddesk_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}(-\d{3})?Z\.json$`)

// Validation errors.
var (
	ErrBadName = errors.New("backup: invalid backup filename")
	ErrBadPath = errors.New("backup: path outside allowed directories")
)

// SafeName rejects any filename that is not a well-formed backup name:
// wrong pattern, over-long, containing a path separator or "..".
func SafeName(name string) error {
	if name == "" || len(name) > maxNameLen {
		return ErrBadName
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return ErrBadName
	}
	if !namePattern.MatchString(name) {
		return ErrBadName
	}
	return nil
}

// FileName builds the snapshot filename for a creation time, replacing the
// characters ':' and '.' that are unsafe in filenames on some platforms.
func FileName(t time.Time) string {
	stamp := t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return FilePrefix + stamp + ".json"
}

// Dirs validates backup destinations against an allow-list of roots: the
// application data directory plus the user's Desktop and Downloads folders.
type Dirs struct {
	appData string
	roots   []string
}

// NewDirs builds the allow-list rooted at the application data directory.
func NewDirs(appData string) (*Dirs, error) {
	appData, err := filepath.Abs(appData)
	if err != nil {
		return nil, fmt.Errorf("resolve app data dir: %w", err)
	}
	roots := []string{appData}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots,
			filepath.Join(home, "Desktop"),
			filepath.Join(home, "Downloads"))
	}
	return &Dirs{appData: appData, roots: roots}, nil
}

// Default returns the default backup directory under the app data root.
func (d *Dirs) Default() string {
	return filepath.Join(d.appData, "backups")
}

// ValidateDir reports whether path is an absolute path inside one of the
// allowed roots. No filesystem access happens here.
func (d *Dirs) ValidateDir(path string) error {
	if path == "" || !filepath.IsAbs(path) {
		return ErrBadPath
	}
	cleaned := filepath.Clean(path)
	for _, root := range d.roots {
		if cleaned == root || strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
			return nil
		}
	}
	return ErrBadPath
}
