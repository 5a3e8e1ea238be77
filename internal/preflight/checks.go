package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/sys/unix"

	"reelsync/internal/config"
	"reelsync/internal/supervisor"
)

const healthTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckExecutable resolves command on PATH (or as a path).
func CheckExecutable(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckScraperWorkDir verifies that one of the scraper working directory
// candidates exists.
func CheckScraperWorkDir(cfg *config.Config) Result {
	const name = "Scraper directory"
	dir, err := supervisor.ResolveWorkDir(cfg.Scraper.BaseDir, cfg.Scraper.WorkDirCandidates)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: dir}
}

// CheckScraperHealth performs one request against the scraper liveness URL.
func CheckScraperHealth(ctx context.Context, healthURL string) Result {
	const name = "Scraper service"

	checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	client := cleanhttp.DefaultClient()
	client.Timeout = healthTimeout
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, healthURL, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid health url (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHealthError(healthURL, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Name: name, Detail: fmt.Sprintf("%s returned %d", healthURL, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", healthURL)}
}

// CheckNotifications reports whether an ntfy topic is configured. It never
// fails the preflight run.
func CheckNotifications(cfg *config.Config) Result {
	const name = "Notifications"
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Optional: true, Detail: "not configured"}
	}
	return Result{Name: name, Passed: true, Detail: cfg.Notifications.NtfyTopic}
}

func summarizeHealthError(healthURL string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s timed out", healthURL)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("%s timed out", healthURL)
	}
	if errors.Is(err, unix.ECONNREFUSED) {
		return fmt.Sprintf("%s refused connection (not running)", healthURL)
	}
	return fmt.Sprintf("%s unreachable (%v)", healthURL, err)
}
