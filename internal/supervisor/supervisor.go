package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"reelsync/internal/config"
	"reelsync/internal/logging"
	"reelsync/internal/metrics"
	"reelsync/internal/services"
)

// State describes the supervised process.
type State int

const (
	StateNotStarted State = iota
	StateStarting
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "not_started"
	}
}

// ErrNoWorkDir indicates none of the working directory candidates exist.
var ErrNoWorkDir = fmt.Errorf("scraper working directory not found: %w", services.ErrConfiguration)

// Prober performs a single health check. *readiness.Gate satisfies it.
type Prober interface {
	Probe(ctx context.Context, endpoint string) bool
}

// Supervisor launches and stops the scraper service.
type Supervisor struct {
	prober     Prober
	logger     *slog.Logger
	metrics    *metrics.Metrics
	healthURL  string
	executable string
	args       []string
	baseDir    string
	candidates []string

	mu       sync.Mutex
	state    State
	cmd      *exec.Cmd
	done     chan struct{}
	stopping bool
	workDir  string
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithMetrics publishes state transitions to the supervisor gauge.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithBaseDir overrides the directory relative candidates resolve against.
func WithBaseDir(dir string) Option {
	return func(s *Supervisor) {
		if strings.TrimSpace(dir) != "" {
			s.baseDir = dir
		}
	}
}

// New builds a supervisor from the scraper section of cfg.
func New(cfg *config.Config, prober Prober, logger *slog.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		prober:     prober,
		logger:     logging.NewComponentLogger(logger, "supervisor"),
		candidates: config.DefaultWorkDirCandidates(),
	}
	if cfg != nil {
		s.healthURL = cfg.HealthURL()
		s.executable = cfg.Scraper.Executable
		s.args = append([]string(nil), cfg.Scraper.Args...)
		s.baseDir = cfg.Scraper.BaseDir
		if len(cfg.Scraper.WorkDirCandidates) > 0 {
			s.candidates = append([]string(nil), cfg.Scraper.WorkDirCandidates...)
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current process state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// WorkDir returns the directory the process was launched in, if any.
func (s *Supervisor) WorkDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workDir
}

// Start ensures the scraper service is running. It returns StateRunning
// without launching anything when the health endpoint already answers.
func (s *Supervisor) Start(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.cmd != nil {
		state := s.state
		s.mu.Unlock()
		return state, nil
	}
	s.mu.Unlock()

	// The probe can take seconds; State and Stop must not wait on it.
	reachable := s.prober != nil && s.healthURL != "" && s.prober.Probe(ctx, s.healthURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd != nil {
		return s.state, nil
	}
	if reachable {
		s.logger.Info("scraper already reachable; not launching",
			logging.String("endpoint", s.healthURL),
			logging.String(logging.FieldEventType, "scraper_external"),
		)
		s.setState(StateRunning)
		return s.state, nil
	}
	if strings.TrimSpace(s.executable) == "" {
		return s.state, services.Wrap(services.ErrConfiguration, "supervisor", "start", "scraper.executable is empty", nil)
	}

	workDir, err := s.resolveWorkDir()
	if err != nil {
		return s.state, err
	}

	s.setState(StateStarting)
	cmd := exec.Command(s.executable, s.args...) //nolint:gosec
	cmd.Dir = workDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.setState(StateStopped)
		return s.state, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		s.setState(StateStopped)
		return s.state, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		s.setState(StateStopped)
		return s.state, services.Wrap(services.ErrExternalTool, "supervisor", "launch scraper", s.executable, err)
	}

	s.cmd = cmd
	s.done = make(chan struct{})
	s.stopping = false
	s.workDir = workDir
	s.setState(StateRunning)
	s.logger.Info("scraper launched",
		logging.String("executable", s.executable),
		logging.String("workdir", workDir),
		logging.Int("pid", cmd.Process.Pid),
		logging.String(logging.FieldEventType, "scraper_launched"),
	)

	go s.monitor(cmd, stdout, stderr, s.done)
	return s.state, nil
}

// Stop kills the process group and waits for the monitor to observe the
// exit. It is a no-op when nothing was started and safe to call repeatedly.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cmd := s.cmd
	done := s.done
	if cmd == nil {
		if s.state == StateRunning || s.state == StateStarting {
			s.setState(StateStopped)
		}
		s.mu.Unlock()
		return
	}
	first := !s.stopping
	s.stopping = true
	s.mu.Unlock()

	if first {
		pid := cmd.Process.Pid
		if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			s.logger.Warn("kill scraper process group failed; killing leader",
				logging.Int("pid", pid),
				logging.Error(err),
			)
			_ = cmd.Process.Kill()
		}
	}
	<-done
}

func (s *Supervisor) monitor(cmd *exec.Cmd, stdout, stderr io.Reader, done chan struct{}) {
	var wg sync.WaitGroup
	wg.Add(2)
	go s.scan(&wg, stdout, "STDOUT")
	go s.scan(&wg, stderr, "STDERR")
	wg.Wait()
	err := cmd.Wait()

	s.mu.Lock()
	stopping := s.stopping
	s.cmd = nil
	s.setState(StateStopped)
	s.mu.Unlock()

	if stopping {
		s.logger.Info("scraper stopped", logging.String(logging.FieldEventType, "scraper_stopped"))
	} else {
		attrs := []logging.Attr{
			logging.String(logging.FieldErrorKind, string(services.KindDegraded)),
			logging.String(logging.FieldErrorHint, "inspect scraper output lines logged with stream=STDERR"),
			logging.String(logging.FieldImpact, "sync phases are skipped until the scraper is restarted"),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logging.WarnWithContext(s.logger, "scraper exited unexpectedly", "scraper_exited", attrs...)
	}
	close(done)
}

func (s *Supervisor) scan(wg *sync.WaitGroup, r io.Reader, stream string) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if stream == "STDERR" {
			s.logger.Warn(line, logging.String(logging.FieldStream, stream))
		} else {
			s.logger.Info(line, logging.String(logging.FieldStream, stream))
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Debug("scraper output scan ended", logging.String(logging.FieldStream, stream), logging.Error(err))
	}
}

func (s *Supervisor) resolveWorkDir() (string, error) {
	return ResolveWorkDir(s.baseDir, s.candidates)
}

// ResolveWorkDir returns the first candidate directory that exists. Relative
// candidates are joined to baseDir, or to the running binary's directory when
// baseDir is empty.
func ResolveWorkDir(baseDir string, candidates []string) (string, error) {
	base := baseDir
	if base == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("%w: resolve executable: %v", ErrNoWorkDir, err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		base = filepath.Dir(exe)
	}

	tried := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		path := candidate
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, candidate)
		}
		tried = append(tried, path)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w (searched %s)", ErrNoWorkDir, strings.Join(tried, ", "))
}

// setState must be called with s.mu held.
func (s *Supervisor) setState(state State) {
	s.state = state
	s.metrics.SetSupervisorState(int(state))
}
