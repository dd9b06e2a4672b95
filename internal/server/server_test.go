package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quire/internal/builder"
	"quire/internal/config"
	"quire/internal/errors"
	"quire/internal/metrics"
)

func writeAt(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func newTestServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"content/_index.md":    "+++\ntitle = \"Home\"\n+++\n",
		"content/a.md":         "+++\ntitle = \"A\"\n+++\nBody",
		"templates/index.html": `<html><body>{{ .section.Title }}</body></html>`,
		"templates/page.html":  `<html><body>{{ .page.Title }}</body></html>`,
		"static/site.css":      "body{}",
	}
	for name, body := range files {
		writeAt(t, filepath.Join(root, filepath.FromSlash(name)), body)
	}

	site, err := builder.New(config.NewLayout(root), config.Default(), builder.Options{})
	require.NoError(t, err)
	if opts.Registry != nil {
		site.Metrics = metrics.NewPrometheusRecorder(opts.Registry)
	}
	require.NoError(t, site.Load(context.Background()))
	_, err = site.Build(context.Background())
	require.NoError(t, err)

	return New(site, opts, log.New(io.Discard)), root
}

func TestHandler_InjectsLiveReload(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/a/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-store")
	assert.Contains(t, string(body), "<body>A")
	assert.Contains(t, string(body), "/livereload")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(string(body)), "</body></html>"))
}

func TestHandler_StaticFilesUntouched(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/site.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(body))
}

func TestHandler_Metrics(t *testing.T) {
	s, _ := newTestServer(t, Options{Registry: prom.NewRegistry()})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "quire_build_duration_seconds")
}

func dialLiveReload(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/livereload", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestRebuild_BroadcastsReload(t *testing.T) {
	s, root := newTestServer(t, Options{})
	conn := dialLiveReload(t, s)

	path := filepath.Join(root, "content", "a.md")
	writeAt(t, path, "+++\ntitle = \"A2\"\n+++\nBody")
	require.NoError(t, s.rebuild(context.Background(), path))

	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, Message{Command: "reload", Path: "content/a.md"}, msg)
}

func TestRebuild_StaticReloadPathIsURL(t *testing.T) {
	s, root := newTestServer(t, Options{})
	conn := dialLiveReload(t, s)

	path := filepath.Join(root, "static", "site.css")
	writeAt(t, path, "body{color:red}")
	require.NoError(t, s.rebuild(context.Background(), path))

	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "/site.css", msg.Path)
}

func TestRebuild_ErrorIsBroadcastNotFatal(t *testing.T) {
	s, root := newTestServer(t, Options{})
	conn := dialLiveReload(t, s)

	path := filepath.Join(root, "content", "a.md")
	writeAt(t, path, "no front matter")
	require.NoError(t, s.rebuild(context.Background(), path))

	var msg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Command)
	assert.Contains(t, msg.Message, "front matter")
}

func TestRebuild_UnclassifiedStops(t *testing.T) {
	s, root := newTestServer(t, Options{})
	err := s.rebuild(context.Background(), filepath.Join(root, "notes", "x.md"))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestSchedule_Debounces(t *testing.T) {
	s, root := newTestServer(t, Options{Debounce: 30 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := filepath.Join(root, "content", "a.md")
	other := filepath.Join(root, "static", "site.css")
	for i := 0; i < 5; i++ {
		s.schedule(ctx, path)
	}
	s.schedule(ctx, other)

	got := map[string]int{}
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case p := <-s.queue:
			got[p]++
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	select {
	case p := <-s.queue:
		t.Fatalf("unexpected extra event for %s", p)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, map[string]int{path: 1, other: 1}, got)
}

func TestRun_WatchesAndRebuilds(t *testing.T) {
	s, root := newTestServer(t, Options{Addr: "127.0.0.1:0", Debounce: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	target := filepath.Join(root, "public", "a", "index.html")
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(root, "content", "a.md"), []byte("+++\ntitle = \"Watched\"\n+++\nBody"), 0o644)
		data, err := os.ReadFile(target)
		return err == nil && strings.Contains(string(data), "Watched")
	}, 5*time.Second, 200*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
