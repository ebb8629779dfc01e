package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/editorhost/internal/infrastructure/logging"
)

// Descriptor is anything that names an open file descriptor, such as an
// *os.File or a Pipe end.
type Descriptor interface {
	Fd() uintptr
}

// Streams selects the child's standard streams. A nil slot inherits the
// parent's stream.
type Streams struct {
	Stdin  Descriptor
	Stdout Descriptor
	Stderr Descriptor
}

func (s Streams) files() []uintptr {
	slot := func(d Descriptor, inherit uintptr) uintptr {
		if d == nil {
			return inherit
		}
		return d.Fd()
	}
	return []uintptr{
		slot(s.Stdin, 0),
		slot(s.Stdout, 1),
		slot(s.Stderr, 2),
	}
}

// Subprocess is the result of a spawn. PID is meaningful only when Err is
// nil.
type Subprocess struct {
	PID int
	Err error
}

// OK reports whether the spawn succeeded.
func (s Subprocess) OK() bool { return s.Err == nil }

// Errno returns the platform error code of a failed spawn, or 0.
func (s Subprocess) Errno() syscall.Errno {
	var errno syscall.Errno
	if errors.As(s.Err, &errno) {
		return errno
	}
	if s.Err != nil {
		return syscall.EINVAL
	}
	return 0
}

// SpawnError describes a failed spawn.
type SpawnError struct {
	Op   string // "spawn" or "lookup"
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Launcher spawns child processes. The zero value is ready to use and does
// not log.
type Launcher struct {
	logger  *logging.Logger
	observe func(name string, sub Subprocess)
}

// LauncherOption configures a Launcher.
type LauncherOption func(*Launcher)

// WithLogger sets the logger used around spawns.
func WithLogger(logger *logging.Logger) LauncherOption {
	return func(l *Launcher) {
		l.logger = logger.Named("process")
	}
}

// WithObserver registers a callback invoked after every spawn attempt.
func WithObserver(fn func(name string, sub Subprocess)) LauncherOption {
	return func(l *Launcher) {
		l.observe = fn
	}
}

// NewLauncher creates a launcher.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var defaultLauncher = &Launcher{}

// SpawnByPath starts the executable at path using the default launcher.
func SpawnByPath(path string, argv []string, env map[string]string, streams Streams) Subprocess {
	return defaultLauncher.SpawnByPath(path, argv, env, streams)
}

// SpawnByName resolves name on PATH and starts it using the default
// launcher.
func SpawnByName(name string, argv []string, env map[string]string, streams Streams) Subprocess {
	return defaultLauncher.SpawnByName(name, argv, env, streams)
}

// SpawnByPath starts the executable at path with argv, the parent
// environment overlaid with env, and the given standard streams.
func (l *Launcher) SpawnByPath(path string, argv []string, env map[string]string, streams Streams) Subprocess {
	sub := l.spawn(path, argv, env, streams)
	l.report(path, sub)
	return sub
}

// SpawnByName resolves name with the platform executable search and then
// behaves like SpawnByPath.
func (l *Launcher) SpawnByName(name string, argv []string, env map[string]string, streams Streams) Subprocess {
	path, err := Resolve(name)
	if err != nil {
		sub := Subprocess{Err: &SpawnError{Op: "lookup", Path: name, Err: err}}
		l.report(name, sub)
		return sub
	}
	sub := l.spawn(path, argv, env, streams)
	l.report(name, sub)
	return sub
}

func (l *Launcher) spawn(path string, argv []string, env map[string]string, streams Streams) Subprocess {
	if len(argv) == 0 {
		argv = []string{path}
	}
	attr := &syscall.ProcAttr{
		Env:   MergeEnv(os.Environ(), env),
		Files: streams.files(),
	}

	l.log().Debug("spawning child",
		zap.String("path", path),
		zap.Strings("argv", argv),
		zap.Int("env_overlay", len(env)),
	)

	pid, err := syscall.ForkExec(path, argv, attr)
	if err != nil {
		return Subprocess{Err: &SpawnError{Op: "spawn", Path: path, Err: err}}
	}
	return Subprocess{PID: pid}
}

func (l *Launcher) report(name string, sub Subprocess) {
	if sub.OK() {
		l.log().Info("child started", zap.String("executable", name), zap.Int("pid", sub.PID))
	} else {
		l.log().Warn("spawn failed", zap.String("executable", name), zap.Error(sub.Err))
	}
	if l.observe != nil {
		l.observe(name, sub)
	}
}

func (l *Launcher) log() *logging.Logger {
	if l.logger == nil {
		return logging.Nop()
	}
	return l.logger
}

// Resolve finds name on PATH the way execvp does. Names containing a slash
// are returned unchanged and an empty PATH entry means the current
// directory. When no entry holds an executable the error is EACCES if some
// entry held a file by that name that could not be executed, and ENOENT
// otherwise.
func Resolve(name string) (string, error) {
	if strings.Contains(name, "/") {
		return name, nil
	}
	if name == "" {
		return "", syscall.ENOENT
	}
	denied := false
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		candidate := dir + "/" + name
		err := unix.Access(candidate, unix.X_OK)
		if err == nil {
			if fi, statErr := os.Stat(candidate); statErr == nil && fi.Mode().IsRegular() {
				return candidate, nil
			}
			denied = true
			continue
		}
		if errors.Is(err, syscall.EACCES) {
			denied = true
		}
	}
	if denied {
		return "", syscall.EACCES
	}
	return "", syscall.ENOENT
}

// MergeEnv returns base with overlay applied. Entries of base keep their
// order and overridden names keep their position; names only present in the
// overlay are appended in sorted order.
func MergeEnv(base []string, overlay map[string]string) []string {
	out := make([]string, 0, len(base)+len(overlay))
	seen := make(map[string]bool, len(overlay))

	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if v, ok := overlay[name]; ok {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name+"="+v)
			continue
		}
		out = append(out, kv)
	}

	extra := make([]string, 0, len(overlay))
	for name := range overlay {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, name+"="+overlay[name])
	}
	return out
}
