package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/editorhost/internal/arena"
	"github.com/GriffinCanCode/editorhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/editorhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/editorhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/editorhost/internal/process"
	"github.com/GriffinCanCode/editorhost/internal/ringbuf"
	"github.com/GriffinCanCode/editorhost/internal/rpc"
	"github.com/GriffinCanCode/editorhost/internal/shared/id"
)

var (
	// ErrClosed is returned by Send after the child's stdin was closed.
	ErrClosed = errors.New("session: closed")

	// ErrStarted is returned by Start on a session that was already started.
	ErrStarted = errors.New("session: already started")

	// ErrNotStarted is returned by operations that need a running child.
	ErrNotStarted = errors.New("session: not started")

	// ErrStillRunning is returned by Close when the child outlived SIGKILL.
	ErrStillRunning = errors.New("session: editor still running after kill")
)

// Handler receives decoded message batches. The messages and the memory they
// reference are only valid during the call.
type Handler interface {
	Handle(ctx context.Context, batch []rpc.Message)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, batch []rpc.Message)

func (f HandlerFunc) Handle(ctx context.Context, batch []rpc.Message) { f(ctx, batch) }

// Launch describes the editor to spawn. Path takes precedence over Name,
// which is resolved on PATH.
type Launch struct {
	Path string
	Name string
	Args []string
	Env  map[string]string

	// Terminal gives the child a pseudo-terminal as stderr instead of a pipe.
	Terminal bool
	Cols     int
	Rows     int
}

// LaunchFromConfig builds a Launch from editor configuration.
func LaunchFromConfig(cfg config.EditorConfig) Launch {
	return Launch{Path: cfg.Path, Name: cfg.Name, Args: cfg.Args, Env: cfg.Env}
}

func (l Launch) executable() string {
	if l.Path != "" {
		return l.Path
	}
	return l.Name
}

func (l Launch) argv() []string {
	argv := make([]string, 0, len(l.Args)+1)
	argv = append(argv, filepath.Base(l.executable()))
	return append(argv, l.Args...)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) { s.baseLog = logger }
}

// WithMetrics records transport metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLauncher overrides the process launcher.
func WithLauncher(l *process.Launcher) Option {
	return func(s *Session) { s.launcher = l }
}

// Session is one embedded editor and its transport.
type Session struct {
	id       id.SessionID
	cfg      config.TransportConfig
	handler  Handler
	framer   *rpc.Framer
	launcher *process.Launcher
	baseLog  *logging.Logger
	log      *logging.Logger
	metrics  *monitoring.Metrics

	// owned by the read goroutine once started
	ring  *ringbuf.Buffer
	arena *arena.Arena
	batch []rpc.Message

	writeMu sync.Mutex
	stdin   *os.File

	stdout *os.File
	stderr *os.File
	term   *process.Terminal

	started atomic.Bool
	nextID  atomic.Uint32
	pid     int
	frames  int

	signal   func(pid int, sig syscall.Signal) error
	killWait time.Duration

	readDone   chan struct{}
	stderrDone chan struct{}
	exited     chan struct{}
	status     process.ExitStatus
	waitErr    error
	readErr    error

	closeOnce sync.Once
	closeErr  error
}

// New creates a session that will dispatch decoded batches to handler.
func New(cfg config.TransportConfig, handler Handler, opts ...Option) (*Session, error) {
	codec, err := rpc.CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if cfg.ReadChunk <= 0 {
		cfg.ReadChunk = config.Default().Transport.ReadChunk
	}

	s := &Session{
		id:         id.NewSessionID(),
		cfg:        cfg,
		handler:    handler,
		framer:     rpc.NewFramer(codec, cfg.MaxFrame),
		readDone:   make(chan struct{}),
		stderrDone: make(chan struct{}),
		exited:     make(chan struct{}),
		signal:     process.Kill,
		killWait:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.baseLog == nil {
		s.baseLog = logging.Nop()
	}
	s.log = s.baseLog.Named("session").With(zap.String("session_id", s.id.String()))
	if s.launcher == nil {
		s.launcher = process.NewLauncher(process.WithLogger(s.baseLog))
	}

	s.ring = ringbuf.New(cfg.RingCapacity, ringbuf.WithPoisoning(cfg.Poison))
	s.arena = arena.New(cfg.ArenaBlock, arena.WithPoisoning(cfg.Poison))
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() id.SessionID { return s.id }

// PID returns the child's process id, or 0 before Start.
func (s *Session) PID() int { return s.pid }

// Codec returns the codec used on the wire.
func (s *Session) Codec() rpc.Codec { return s.framer.Codec() }

// Start spawns the editor and starts the transport. The context is passed
// to the handler; cancelling it does not stop the session, use Close. A
// failed Start leaves the session unstarted, so it may be retried.
func (s *Session) Start(ctx context.Context, launch Launch) (err error) {
	if !s.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	defer func() {
		if err != nil {
			s.term = nil
			s.started.Store(false)
		}
	}()

	in, err := process.OpenPipe()
	if err != nil {
		return fmt.Errorf("open stdin pipe: %w", err)
	}
	defer in.Close()
	out, err := process.OpenPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	defer out.Close()

	streams := process.Streams{Stdin: in.ReadEnd(), Stdout: out.WriteEnd()}

	var errp *process.Pipe
	if launch.Terminal {
		term, terr := process.OpenTerminal(launch.Cols, launch.Rows)
		if terr != nil {
			return fmt.Errorf("open terminal: %w", terr)
		}
		s.term = term
		streams.Stderr = term.TTY
	} else {
		errp, err = process.OpenPipe()
		if err != nil {
			return fmt.Errorf("open stderr pipe: %w", err)
		}
		defer errp.Close()
		streams.Stderr = errp.WriteEnd()
	}

	var sub process.Subprocess
	if launch.Path != "" {
		sub = s.launcher.SpawnByPath(launch.Path, launch.argv(), launch.Env, streams)
	} else {
		sub = s.launcher.SpawnByName(launch.Name, launch.argv(), launch.Env, streams)
	}
	s.recordSpawn(sub)
	if !sub.OK() {
		if s.term != nil {
			_ = s.term.Close()
		}
		return sub.Err
	}
	s.pid = sub.PID

	// the child holds its own copies now; dropping ours makes EOF observable
	_ = in.CloseRead()
	_ = out.CloseWrite()
	s.stdin = in.TakeWrite()
	s.stdout = out.TakeRead()
	if s.term != nil {
		_ = s.term.CloseTTY()
		s.stderr = s.term.PTY
	} else {
		_ = errp.CloseWrite()
		s.stderr = errp.TakeRead()
	}

	s.log = s.log.With(zap.Int("pid", s.pid))
	if s.metrics != nil {
		s.metrics.IncSessionsActive()
	}

	go s.reap()
	go s.readLoop(ctx)
	go s.drainStderr()
	return nil
}

func (s *Session) recordSpawn(sub process.Subprocess) {
	if s.metrics != nil {
		s.metrics.RecordSpawn(sub.OK())
	}
}

func (s *Session) reap() {
	defer close(s.exited)
	s.status, s.waitErr = process.Wait(s.pid)
	s.log.Info("editor exited", zap.Stringer("status", s.status), zap.Error(s.waitErr))
}

// readLoop fills the ring buffer from stdout and dispatches decoded batches
// until end of stream or a fatal protocol error.
func (s *Session) readLoop(ctx context.Context) {
	defer close(s.readDone)

	grows := s.ring.Grows()
	for {
		n, err := s.ring.Fill(s.stdout, s.cfg.ReadChunk)
		if n > 0 {
			if s.metrics != nil {
				s.metrics.RecordRead(n)
				s.metrics.RecordRing(s.ring.Cap(), s.ring.Grows()-grows)
			}
			grows = s.ring.Grows()

			if derr := s.dispatch(ctx); derr != nil {
				s.readErr = derr
				s.log.Error("transport stopped", zap.Error(derr))
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) && !errors.Is(err, os.ErrDeadlineExceeded) {
				s.readErr = fmt.Errorf("read stdout: %w", err)
				s.log.Error("read failed", zap.Error(err))
			}
			if s.ring.Len() > 0 {
				s.log.Warn("stream ended inside a frame", zap.Int("pending_bytes", s.ring.Len()))
			}
			return
		}
	}
}

// dispatch decodes every complete frame, hands batches to the handler and
// resets the arena after each batch. Only oversized frames are fatal.
func (s *Session) dispatch(ctx context.Context) error {
	for {
		batch, err := s.framer.Decode(s.batch[:0], s.ring, s.arena)
		s.batch = batch[:0]

		if len(batch) > 0 {
			if s.metrics != nil {
				for i := range batch {
					s.metrics.RecordFrame(batch[i].Type.String())
				}
			}
			if s.handler != nil {
				s.handler.Handle(ctx, batch)
			}
			s.frames += len(batch)
			clear(batch)
		}
		s.arena.Reset()
		if s.metrics != nil {
			s.metrics.RecordArenaReset(s.arena.Capacity())
		}

		if err == nil {
			return nil
		}
		if s.metrics != nil {
			s.metrics.RecordProtocolError()
		}
		if errors.Is(err, rpc.ErrFrameTooLarge) {
			if s.frames == 0 {
				return fmt.Errorf("%w; the child never sent a length-prefixed %s frame, editors with another wire format need an adapter executable",
					err, s.Codec().Name())
			}
			return err
		}
		s.log.Warn("dropped malformed frame", zap.Error(err))
	}
}

func (s *Session) drainStderr() {
	defer close(s.stderrDone)

	scanner := bufio.NewScanner(s.stderr)
	for scanner.Scan() {
		s.log.Warn("editor stderr", zap.String("line", scanner.Text()))
	}
}

// Send encodes m and writes it to the child's stdin.
func (s *Session) Send(m *rpc.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.stdin == nil {
		if !s.started.Load() {
			return ErrNotStarted
		}
		return ErrClosed
	}
	n, err := s.framer.Encode(s.stdin, m)
	if n > 0 && s.metrics != nil {
		s.metrics.RecordWrite(n)
	}
	if err != nil {
		return fmt.Errorf("send %s: %w", m.Type, err)
	}
	return nil
}

// Request sends a request with a fresh message id and returns the id. The
// response arrives through the Handler.
func (s *Session) Request(method string, params any) (uint32, error) {
	msgid := s.nextID.Add(1)
	m, err := rpc.NewRequest(s.Codec(), msgid, method, params)
	if err != nil {
		return 0, err
	}
	return msgid, s.Send(&m)
}

// Notify sends a notification.
func (s *Session) Notify(method string, params any) error {
	m, err := rpc.NewNotification(s.Codec(), method, params)
	if err != nil {
		return err
	}
	return s.Send(&m)
}

// Respond answers a request received from the child.
func (s *Session) Respond(msgid uint32, errValue, result any) error {
	m, err := rpc.NewResponse(s.Codec(), msgid, errValue, result)
	if err != nil {
		return err
	}
	return s.Send(&m)
}

// Done is closed when the read loop has stopped. It never closes for a
// session that was not started successfully.
func (s *Session) Done() <-chan struct{} { return s.readDone }

// Err returns the error that stopped the read loop, if any. It is only
// meaningful after Done is closed.
func (s *Session) Err() error {
	select {
	case <-s.readDone:
		return s.readErr
	default:
		return nil
	}
}

// Wait blocks until the child exits and returns its status.
func (s *Session) Wait() (process.ExitStatus, error) {
	if !s.started.Load() || s.pid == 0 {
		return process.ExitStatus{}, ErrNotStarted
	}
	<-s.exited
	return s.status, s.waitErr
}

// Close shuts the session down. It closes the child's stdin and gives the
// child until the shutdown grace period (or ctx) to exit, then kills it. The
// read loop is stopped, descriptors are closed and the buffers released.
// If the child has not been reaped shortly after the kill, Close still
// tears the transport down and reports ErrStillRunning.
// Close waits for the read loop, so it must not be called from a Handler.
func (s *Session) Close(ctx context.Context) error {
	if !s.started.Load() || s.pid == 0 {
		return ErrNotStarted
	}
	s.closeOnce.Do(func() {
		s.closeErr = s.shutdown(ctx)
	})
	return s.closeErr
}

func (s *Session) shutdown(ctx context.Context) error {
	s.writeMu.Lock()
	stdinErr := s.stdin.Close()
	s.stdin = nil
	s.writeMu.Unlock()

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = config.Default().Transport.ShutdownGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-s.exited:
	case <-timer.C:
		s.kill("grace period elapsed")
	case <-ctx.Done():
		s.kill("context done")
	}

	var errs []error
	reaped := time.NewTimer(s.killWait)
	defer reaped.Stop()
	select {
	case <-s.exited:
	case <-reaped.C:
		s.log.Error("editor not reaped after kill", zap.Duration("waited", s.killWait))
		errs = append(errs, fmt.Errorf("%w: pid %d", ErrStillRunning, s.pid))
	}

	// descendants may still hold the write end of stdout
	_ = s.stdout.SetReadDeadline(time.Now())
	<-s.readDone
	_ = s.stderr.SetReadDeadline(time.Now())
	<-s.stderrDone

	if stdinErr != nil {
		errs = append(errs, fmt.Errorf("close stdin: %w", stdinErr))
	}
	if err := s.stdout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stdout: %w", err))
	}
	if s.term != nil {
		_ = s.term.Close()
	} else if err := s.stderr.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close stderr: %w", err))
	}

	s.ring.Release()
	s.arena.Release()
	if s.metrics != nil {
		s.metrics.DecSessionsActive()
	}
	s.log.Info("session closed")
	return errors.Join(errs...)
}

func (s *Session) kill(reason string) {
	s.log.Warn("killing editor", zap.String("reason", reason))
	if err := s.signal(s.pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		s.log.Error("kill failed", zap.Error(err))
	}
}
