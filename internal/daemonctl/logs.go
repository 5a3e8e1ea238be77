package daemonctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"reelsync/internal/api"
)

const followBatch = 200

// LogQuery selects events from the daemon's log buffer.
type LogQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Component string
	ItemID    string
}

func (q LogQuery) values() url.Values {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if component := strings.TrimSpace(q.Component); component != "" {
		values.Set("component", component)
	}
	if item := strings.TrimSpace(q.ItemID); item != "" {
		values.Set("item", item)
	}
	return values
}

// Logs fetches one batch of log events.
func (c *Client) Logs(ctx context.Context, q LogQuery) (api.LogStreamResponse, error) {
	var out api.LogStreamResponse
	httpClient := c.http
	if q.Follow {
		httpClient = c.stream
	}
	err := c.do(ctx, httpClient, http.MethodGet, "/api/logs", q.values(), nil, &out)
	return out, err
}

// StreamOptions controls StreamLogs.
type StreamOptions struct {
	Lines     int
	Follow    bool
	Component string
	ItemID    string
}

// StreamLogs prints the last Lines events and, when Follow is set, keeps
// polling until ctx ends. It reports whether any event was emitted.
func (c *Client) StreamLogs(ctx context.Context, opts StreamOptions, onEvent func(api.LogEvent)) (bool, error) {
	query := LogQuery{
		Limit:     opts.Lines,
		Tail:      true,
		Component: opts.Component,
		ItemID:    opts.ItemID,
	}
	if query.Limit <= 0 {
		query.Limit = followBatch
	}

	printed := false
	for {
		resp, err := c.Logs(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return printed, nil
			}
			return printed, err
		}
		for _, evt := range resp.Events {
			if onEvent != nil {
				onEvent(evt)
			}
			printed = true
		}
		if !opts.Follow {
			return printed, nil
		}
		query.Since = resp.Next
		query.Limit = followBatch
		query.Tail = false
		query.Follow = true
	}
}

// TailFile returns the last n lines of the log file at path. A missing file
// yields no lines.
func TailFile(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if n <= 0 {
		return nil, nil
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	ring := make([]string, 0, n)
	for scanner.Scan() {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	return ring, nil
}
