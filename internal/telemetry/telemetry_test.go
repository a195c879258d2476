/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
}

func (c *collector) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	record := func(dst *[][]byte) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			c.mu.Lock()
			*dst = append(*dst, b)
			c.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		}
	}
	mux.HandleFunc("/events", record(&c.events))
	mux.HandleFunc("/crash", record(&c.crashes))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (c *collector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events), len(c.crashes)
}

func flush(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Flush(ctx)
}

func TestEventAndCrashUpload(t *testing.T) {
	var col collector
	srv := col.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	require.True(t, c.Enabled())

	c.Event("command", map[string]any{"cmd": "fountain pdf", "ok": true})
	flush(c)
	c.UploadCrash([]byte("panic: boom"))

	events, crashes := col.counts()
	require.Equal(t, 1, events)
	require.Equal(t, 1, crashes)

	var ev Event
	require.NoError(t, json.Unmarshal(col.events[0], &ev))
	assert.Equal(t, "command", ev.Name)
	assert.NotEmpty(t, ev.TS)
	assert.NotEmpty(t, ev.Version)
	assert.Equal(t, "fountain pdf", ev.Props["cmd"])
	assert.Equal(t, "panic: boom", string(col.crashes[0]))
}

func TestDisabledClientSendsNothing(t *testing.T) {
	var col collector
	srv := col.server(t)

	off := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash"})
	defer off.Close()
	assert.False(t, off.Enabled())
	off.Event("ignored", nil)
	off.UploadCrash([]byte("ignored"))
	flush(off)

	on := New(Config{OptIn: true, EventsURL: srv.URL + "/events"})
	defer on.Close()
	on.Event("", nil)
	on.UploadCrash([]byte("no crash url"))
	flush(on)

	events, crashes := col.counts()
	assert.Zero(t, events)
	assert.Zero(t, crashes)
}

func TestSendFailuresAreSwallowed(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond})
	defer c.Close()
	c.Event("unreachable", nil)
	flush(c)
	c.UploadCrash([]byte("oops"))
	assert.Zero(t, c.pending.Load())
}

func TestPackageHelpersWithoutClient(t *testing.T) {
	Install(nil)
	Send("nothing", nil)
	Flush(context.Background())
	UploadCrash([]byte("nothing"))
}

func TestInstallReplacesClient(t *testing.T) {
	var col collector
	srv := col.server(t)
	Install(New(Config{OptIn: true, EventsURL: srv.URL + "/events"}))
	t.Cleanup(func() { Install(nil) })

	Send("command", map[string]any{"cmd": "fountain tokens"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	Flush(ctx)

	events, _ := col.counts()
	assert.Equal(t, 1, events)
}

func TestClosedClientDropsEventsAndFlushReturns(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: 5 * time.Second})
	for i := 0; i < 10; i++ {
		c.Event("queued", nil)
	}
	c.Close()
	c.Event("after close", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	c.Flush(ctx)
	assert.Less(t, time.Since(start), time.Second)
	assert.LessOrEqual(t, c.pending.Load(), int64(1), "only an event already being posted may remain")
}
