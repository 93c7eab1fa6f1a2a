package watcher

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Options configures the file watcher behavior.
type Options struct {
	// IgnorePatterns are filepath.Match patterns tested against base names.
	IgnorePatterns []string
	// Extensions restricts events to files with these extensions (".json").
	// Empty means every file.
	Extensions []string
	// SettleDelay is how long a file must stay unchanged before it is reported.
	SettleDelay time.Duration
	// IgnoreHidden skips dot files and directories.
	IgnoreHidden bool
	// Recursive watches subdirectories, including ones created later.
	Recursive bool
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay == 0 {
		o.SettleDelay = 100 * time.Millisecond
	}

	// Default ignore patterns apply only when none were given (nil, not empty).
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{
			".DS_Store",
			"*.tmp",
			"*.temp",
			"*.part",
			"Thumbs.db",
		}
		o.IgnoreHidden = true
	}
}

// shouldIgnore checks if a file or directory name matches ignore rules.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)

	if o.IgnoreHidden && strings.HasPrefix(base, ".") && base != "." && base != ".." {
		return true
	}

	for _, pattern := range o.IgnorePatterns {
		matched, err := filepath.Match(pattern, base)
		if err == nil && matched {
			return true
		}
	}

	return false
}

// wantsFile reports whether a file passes the extension filter.
func (o *Options) wantsFile(path string) bool {
	if len(o.Extensions) == 0 {
		return true
	}
	return slices.Contains(o.Extensions, strings.ToLower(filepath.Ext(path)))
}
