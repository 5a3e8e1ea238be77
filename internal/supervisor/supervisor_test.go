package supervisor_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"reelsync/internal/logging"
	"reelsync/internal/services"
	"reelsync/internal/supervisor"
	"reelsync/internal/testsupport"
)

type stubProber struct {
	ready bool
	calls atomic.Int32
}

func (p *stubProber) Probe(context.Context, string) bool {
	p.calls.Add(1)
	return p.ready
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStartSkipsLaunchWhenServiceReachable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scraper.Executable = filepath.Join(testsupport.BaseDir(cfg), "does-not-exist")
	prober := &stubProber{ready: true}
	sup := supervisor.New(cfg, prober, logging.NewNop())

	state, err := sup.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if state != supervisor.StateRunning {
		t.Fatalf("expected running, got %s", state)
	}
	if prober.calls.Load() != 1 {
		t.Fatalf("expected a single probe, got %d", prober.calls.Load())
	}
	if sup.WorkDir() != "" {
		t.Fatalf("expected no launch, got workdir %q", sup.WorkDir())
	}

	sup.Stop()
	if sup.State() != supervisor.StateStopped {
		t.Fatalf("expected stopped after Stop, got %s", sup.State())
	}
}

func TestStartWithoutWorkDirFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scraper.WorkDirCandidates = []string{"missing-a", "missing-b"}
	sup := supervisor.New(cfg, &stubProber{}, logging.NewNop())

	state, err := sup.Start(context.Background())
	if !errors.Is(err, supervisor.ErrNoWorkDir) {
		t.Fatalf("expected ErrNoWorkDir, got %v", err)
	}
	if services.Classify(err) != services.KindFatal {
		t.Fatalf("expected fatal classification, got %q", services.Classify(err))
	}
	if state != supervisor.StateNotStarted {
		t.Fatalf("expected not started, got %s", state)
	}

	sup.Stop()
	if sup.State() != supervisor.StateNotStarted {
		t.Fatalf("Stop after failed Start must be a no-op, got %s", sup.State())
	}
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	sup := supervisor.New(testsupport.NewConfig(t), nil, logging.NewNop())
	sup.Stop()
	sup.Stop()
	if sup.State() != supervisor.StateNotStarted {
		t.Fatalf("expected not started, got %s", sup.State())
	}
}

func TestStartLaunchesInFirstExistingCandidate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	if err := os.MkdirAll(filepath.Join(base, "services", "scraper"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfg.Scraper.WorkDirCandidates = []string{"scraper", "services/scraper"}
	cfg.Scraper.Executable = testsupport.WriteScript(t, filepath.Join(base, "bin", "fake-scraper"),
		"echo started > started.txt\necho booting\necho warming >&2\nexec sleep 30")
	cfg.Scraper.Args = nil

	sup := supervisor.New(cfg, &stubProber{}, logging.NewNop())
	state, err := sup.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if state != supervisor.StateRunning {
		t.Fatalf("expected running, got %s", state)
	}
	wantDir := filepath.Join(base, "services", "scraper")
	if sup.WorkDir() != wantDir {
		t.Fatalf("expected workdir %q, got %q", wantDir, sup.WorkDir())
	}
	waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(filepath.Join(wantDir, "started.txt"))
		return err == nil
	})

	again, err := sup.Start(context.Background())
	if err != nil || again != supervisor.StateRunning {
		t.Fatalf("second Start should be idempotent, got %s, %v", again, err)
	}

	stopped := make(chan struct{})
	go func() {
		sup.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	if sup.State() != supervisor.StateStopped {
		t.Fatalf("expected stopped, got %s", sup.State())
	}
	sup.Stop()
}

func TestStopKillsWholeProcessGroup(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScraperWorkDir("scraper"))
	base := testsupport.BaseDir(cfg)
	cfg.Scraper.Executable = testsupport.WriteScript(t, filepath.Join(base, "bin", "fake-scraper"),
		"sleep 30 &\necho $! > child.pid\nwait")
	cfg.Scraper.Args = nil

	sup := supervisor.New(cfg, &stubProber{}, logging.NewNop())
	if _, err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	pidFile := filepath.Join(base, "scraper", "child.pid")
	waitFor(t, 5*time.Second, func() bool {
		data, err := os.ReadFile(pidFile)
		return err == nil && len(data) > 0
	})

	done := make(chan struct{})
	go func() {
		sup.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return; background child likely survived")
	}
}

func TestUnexpectedExitMarksStopped(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScraperWorkDir("scraper"))
	cfg.Scraper.Executable = testsupport.WriteScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin", "crashy"), "echo boom >&2\nexit 3")
	cfg.Scraper.Args = nil

	sup := supervisor.New(cfg, &stubProber{}, logging.NewNop())
	if _, err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return sup.State() == supervisor.StateStopped })
	sup.Stop()
}

func TestStartReportsLaunchFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScraperWorkDir("scraper"))
	cfg.Scraper.Executable = filepath.Join(testsupport.BaseDir(cfg), "bin", "missing")

	sup := supervisor.New(cfg, &stubProber{}, logging.NewNop())
	_, err := sup.Start(context.Background())
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	sup.Stop()
}

func TestChildOutputLoggedWithStreamTags(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScraperWorkDir("scraper"))
	cfg.Scraper.Executable = testsupport.WriteScript(t, filepath.Join(testsupport.BaseDir(cfg), "bin", "chatty"),
		"echo hello-out\necho Traceback-boom >&2\nexit 1")
	cfg.Scraper.Args = nil

	hub := logging.NewStreamHub(64)
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: "json", Writer: io.Discard, Stream: hub})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	sup := supervisor.New(cfg, &stubProber{}, logger)
	if _, err := sup.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return sup.State() == supervisor.StateStopped })
	sup.Stop()

	events, _ := hub.Tail(64)
	levels := map[string]string{}
	var exitImpact string
	for _, evt := range events {
		if stream := evt.Fields[logging.FieldStream]; stream != "" {
			levels[evt.Message] = stream + "/" + evt.Level
		}
		if evt.Message == "scraper exited unexpectedly" {
			exitImpact = evt.Fields[logging.FieldImpact]
		}
	}
	if levels["hello-out"] != "STDOUT/INFO" {
		t.Fatalf("expected stdout line at info, got %q (events %+v)", levels["hello-out"], events)
	}
	if levels["Traceback-boom"] != "STDERR/WARN" {
		t.Fatalf("expected stderr line at warn, got %q (events %+v)", levels["Traceback-boom"], events)
	}
	if exitImpact != "sync phases are skipped until the scraper is restarted" {
		t.Fatalf("unexpected exit impact %q", exitImpact)
	}
}

type blockingProber struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingProber) Probe(context.Context, string) bool {
	close(p.entered)
	<-p.release
	return true
}

func TestStateDoesNotWaitOnStartProbe(t *testing.T) {
	prober := &blockingProber{entered: make(chan struct{}), release: make(chan struct{})}
	sup := supervisor.New(testsupport.NewConfig(t), prober, logging.NewNop())

	started := make(chan supervisor.State, 1)
	go func() {
		state, _ := sup.Start(context.Background())
		started <- state
	}()
	<-prober.entered

	polled := make(chan supervisor.State, 1)
	go func() { polled <- sup.State() }()
	select {
	case state := <-polled:
		if state != supervisor.StateNotStarted {
			t.Fatalf("expected not started while probing, got %s", state)
		}
	case <-time.After(time.Second):
		t.Fatal("State blocked behind the health probe")
	}

	close(prober.release)
	if state := <-started; state != supervisor.StateRunning {
		t.Fatalf("expected running after reachable probe, got %s", state)
	}
}
