/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports.
// Nothing leaves the machine unless OptIn is set and a URL is configured.
// Events carry the command name, outcome and timing, never script text or
// file names.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	applog "gofountain/internal/log"
	"gofountain/internal/version"
)

type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

// Event is the JSON body posted to the events URL.
type Event struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client posts events from a background goroutine. The queue is bounded and
// events are dropped when it is full or a request fails.
type Client struct {
	cfg     Config
	log     *slog.Logger
	http    *http.Client
	q       chan Event
	pending atomic.Int64
	once    sync.Once
	closed  chan struct{}
}

const queueSize = 64

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:    cfg,
		log:    applog.WithComponent("telemetry"),
		http:   &http.Client{Timeout: cfg.Timeout},
		q:      make(chan Event, queueSize),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether events will be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues an event; props must not contain personal data.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" || c.isClosed() {
		return
	}
	ev := Event{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.Version,
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   props,
	}
	c.pending.Add(1)
	select {
	case c.q <- ev:
	default:
		c.pending.Add(-1)
		c.log.Debug("event dropped, queue full", "event", name)
	}
}

// Flush waits until every queued event has been attempted, the client is
// closed or ctx is done.
func (c *Client) Flush(ctx context.Context) {
	if c == nil {
		return
	}
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		case <-t.C:
		}
	}
}

// Close stops the sender; queued events that were not sent are dropped and
// later events are ignored.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		close(c.closed)
		for {
			select {
			case <-c.q:
				c.pending.Add(-1)
			default:
				return
			}
		}
	})
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case ev := <-c.q:
			b, err := json.Marshal(ev)
			if err == nil {
				err = c.post(c.cfg.EventsURL, "application/json", b)
			}
			if err != nil {
				c.log.Debug("event not sent", "event", ev.Name, "err", err)
			}
			c.pending.Add(-1)
		}
	}
}

// UploadCrash posts a crash report synchronously, bounded by the client
// timeout; the process is usually about to exit.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	if err := c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report); err != nil {
		c.log.Debug("crash report not uploaded", "err", err)
		return
	}
	c.log.Debug("crash report uploaded")
}

func (c *Client) post(url, contentType string, body []byte) error {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "gofountain/"+version.Version)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return nil
}

var (
	mu  sync.RWMutex
	def *Client
)

// Install replaces the package level client used by the helpers below and
// closes the previous one.
func Install(c *Client) {
	mu.Lock()
	old := def
	def = c
	mu.Unlock()
	old.Close()
}

func current() *Client {
	mu.RLock()
	defer mu.RUnlock()
	return def
}

// Send queues an event on the installed client, if any.
func Send(name string, props map[string]any) { current().Event(name, props) }

// Flush drains the installed client.
func Flush(ctx context.Context) { current().Flush(ctx) }

// UploadCrash sends a crash report through the installed client, if any.
func UploadCrash(report []byte) { current().UploadCrash(report) }
