package sweep

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dirsweep/internal/atime"
	"dirsweep/internal/fsops"
	"dirsweep/internal/safety"

	"github.com/IGLOU-EU/go-wildcard"
)

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// stdLogger wraps standard log.Logger to implement Logger interface
type stdLogger struct {
	*log.Logger
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	l.logWithLevel("DEBUG", msg, args...)
}

func (l *stdLogger) logWithLevel(level, msg string, args ...interface{}) {
	// Format key-value pairs
	var parts []interface{}
	parts = append(parts, fmt.Sprintf("[%s]", level), msg)
	parts = append(parts, args...)
	l.Logger.Println(parts...)
}

// Sweeper performs one bottom-up traversal of a directory tree,
// deciding per-entry eligibility from access age and applying (or
// simulating) deletion. Single-threaded and synchronous: one sequential
// depth-first pass with no overlapping I/O.
type Sweeper struct {
	logger    Logger
	deleter   fsops.Deleter
	validator *safety.Validator
	now       func() time.Time
	throttle  func()
}

// NewSweeper creates a Sweeper with the given logger
func NewSweeper(logger *log.Logger) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	return &Sweeper{
		logger:  &stdLogger{Logger: logger},
		deleter: fsops.OSDeleter{},
		now:     time.Now,
	}
}

// SetDeleter replaces the filesystem deleter (used by tests)
func (s *Sweeper) SetDeleter(d fsops.Deleter) {
	s.deleter = d
}

// SetValidator replaces the delete authorization validator
func (s *Sweeper) SetValidator(v *safety.Validator) {
	s.validator = v
}

// SetClock replaces the time source (used by tests)
func (s *Sweeper) SetClock(now func() time.Time) {
	s.now = now
}

// SetThrottle installs a hook invoked once per directory visited,
// letting callers limit resource usage during large walks
func (s *Sweeper) SetThrottle(fn func()) {
	s.throttle = fn
}

// Sweep runs a single bottom-up pass over cfg.Root. Children are
// visited and possibly deleted before their parent directory's
// emptiness is judged, so a directory that becomes empty purely as a
// side effect of this run's deletions is itself removed in the same
// run. Returns an error only for configuration-time validation
// failures; per-entry failures are recovered locally and recorded as
// events.
func (s *Sweeper) Sweep(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.validator == nil {
		s.validator = safety.NewValidator(cfg.Root, nil)
	}

	res := &Result{}
	root := filepath.Clean(cfg.Root)
	s.sweepDir(&cfg, cfg.resolvedExcluded(), res, root, true)

	if cfg.Verbose {
		s.logger.Info("Sweep complete",
			"root", root,
			"files_deleted", res.FilesDeleted,
			"dirs_deleted", res.DirsDeleted,
			"events", len(res.Events),
		)
	}
	return res, nil
}

// sweepDir processes one directory and returns the number of entries
// the directory holds after this pass. A return of zero means the
// directory was removed (or, in dry-run mode, would have been) and no
// longer counts toward its parent's emptiness.
func (s *Sweeper) sweepDir(cfg *Config, excluded []string, res *Result, dir string, isRoot bool) int {
	if !isRoot && s.isExcluded(dir, excluded, cfg.ExcludePatterns) {
		res.add(Event{Kind: EventExcluded, Path: dir})
		return 1
	}

	if s.throttle != nil {
		s.throttle()
	}

	// Capture the directory's own access time before listing it:
	// reading the directory is itself an access and would reset the
	// very timestamp the age gate inspects.
	var dirAccess time.Time
	if cfg.DirAgeCheck && !isRoot {
		if info, err := os.Stat(dir); err == nil {
			dirAccess = atime.Get(info)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		res.add(Event{Kind: EventAccessError, Path: dir, Err: err.Error()})
		s.logger.Warn("Cannot list directory", "path", dir, "error", err)
		return 1
	}

	// Subdirectories first: their deletions must land before this
	// directory's own files are judged and before its emptiness check.
	remaining := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		remaining += s.sweepDir(cfg, excluded, res, filepath.Join(dir, entry.Name()), false)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		remaining += s.sweepFile(cfg, res, filepath.Join(dir, entry.Name()), entry)
	}

	if remaining > 0 {
		return 1
	}
	if isRoot {
		// The root is evaluated for files but never deleted itself.
		return 1
	}

	if cfg.DirAgeCheck {
		if dirAccess.IsZero() || s.now().Sub(dirAccess) <= cfg.MaxAge {
			return 1
		}
	}

	res.add(Event{Kind: EventDir, Path: dir})
	if cfg.Verbose {
		s.logger.Debug("Empty directory selected", "path", dir)
	}
	if cfg.DryRun {
		return 0
	}
	if err := s.removeDir(dir); err != nil {
		res.add(Event{Kind: EventDeleteError, Path: dir, Err: err.Error()})
		s.logger.Warn("Failed to remove directory", "path", dir, "error", err)
		return 1
	}
	res.DirsDeleted++
	return 0
}

// sweepFile evaluates one non-directory entry and returns 1 if it
// still occupies its parent after this pass, 0 otherwise
func (s *Sweeper) sweepFile(cfg *Config, res *Result, path string, entry os.DirEntry) int {
	if matchesPattern(entry.Name(), cfg.ExcludePatterns) {
		return 1
	}

	info, err := entry.Info()
	if err != nil {
		res.add(Event{Kind: EventAccessError, Path: path, Err: err.Error()})
		s.logger.Warn("Cannot stat file", "path", path, "error", err)
		return 1
	}

	accessed := atime.Get(info)
	age := s.now().Sub(accessed)
	if age <= cfg.MaxAge {
		return 1
	}

	res.add(Event{
		Kind:       EventFile,
		Path:       path,
		AccessTime: accessed,
		AgeDays:    int(age.Hours() / 24),
		Size:       info.Size(),
	})
	if cfg.Verbose {
		s.logger.Debug("File selected",
			"path", path,
			"age_days", int(age.Hours()/24),
			"size", info.Size(),
		)
	}
	if cfg.DryRun {
		return 0
	}
	if err := s.removeFile(path); err != nil {
		res.add(Event{Kind: EventDeleteError, Path: path, Err: err.Error()})
		s.logger.Warn("Failed to delete file", "path", path, "error", err)
		return 1
	}
	res.FilesDeleted++
	res.BytesFreed += info.Size()
	return 0
}

func (s *Sweeper) removeFile(path string) error {
	if err := s.validator.ValidateDeleteTarget(path); err != nil {
		return err
	}
	return s.deleter.Remove(path)
}

func (s *Sweeper) removeDir(path string) error {
	if err := s.validator.ValidateDeleteTarget(path); err != nil {
		return err
	}
	return s.deleter.Rmdir(path)
}

// isExcluded reports whether dir equals or is nested under any
// configured excluded path, or matches an exclude pattern by base name
func (s *Sweeper) isExcluded(dir string, excluded []string, patterns []string) bool {
	for _, ex := range excluded {
		if hasPathPrefix(dir, ex) {
			return true
		}
	}
	return matchesPattern(filepath.Base(dir), patterns)
}

func matchesPattern(name string, patterns []string) bool {
	for _, p := range patterns {
		if wildcard.Match(p, name) {
			return true
		}
	}
	return false
}

// hasPathPrefix checks if path has the given prefix, matching whole
// path components only (never a raw string prefix)
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}
