package sweep

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

var (
	errNoRoot           = errors.New("sweep root must be set")
	errRelativeRoot     = errors.New("sweep root must be absolute")
	errNegativeAge      = errors.New("max age cannot be negative")
	errAbsoluteExclude  = errors.New("excluded path must be relative to root")
	errTraversalExclude = errors.New("excluded path must not contain \"..\"")
)

// Config is the validated input of a single sweep. Constructed once per
// invocation; the sweeper never mutates it.
type Config struct {
	// Root is the absolute path of the directory tree to sweep
	Root string

	// MaxAge is the access-age threshold; entries last accessed more
	// than MaxAge ago become candidates
	MaxAge time.Duration

	// Excluded lists subtrees exempted from evaluation and deletion,
	// given relative to Root
	Excluded []string

	// ExcludePatterns lists wildcard patterns matched against entry
	// base names; matching directories are excluded like Excluded
	// subtrees, matching files are retained silently
	ExcludePatterns []string

	DryRun  bool
	Verbose bool

	// DirAgeCheck gates empty-directory removal on the directory's own
	// access age. Off by default: an empty directory is removed
	// unconditionally once found empty at evaluation time.
	DirAgeCheck bool
}

// Validate checks the configuration before any traversal begins.
// Violations here are fatal to the whole run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errNoRoot
	}
	if !filepath.IsAbs(c.Root) {
		return fmt.Errorf("%w: %s", errRelativeRoot, c.Root)
	}
	if c.MaxAge < 0 {
		return errNegativeAge
	}
	for _, e := range c.Excluded {
		if filepath.IsAbs(e) {
			return fmt.Errorf("%w: %s", errAbsoluteExclude, e)
		}
		for _, seg := range strings.Split(filepath.ToSlash(e), "/") {
			if seg == ".." {
				return fmt.Errorf("%w: %s", errTraversalExclude, e)
			}
		}
	}
	return nil
}

// resolvedExcluded resolves the relative exclusion entries against Root
// into absolute, cleaned paths
func (c *Config) resolvedExcluded() []string {
	out := make([]string, 0, len(c.Excluded))
	for _, e := range c.Excluded {
		out = append(out, filepath.Clean(filepath.Join(c.Root, e)))
	}
	return out
}
