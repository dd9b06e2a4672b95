// internal/server/server.go
package server

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"quire/internal/builder"
	"quire/internal/errors"
	"quire/internal/metrics"
)

// DefaultDebounce is how long a path must stay quiet before it is rebuilt.
const DefaultDebounce = 100 * time.Millisecond

// Options configure the development server.
type Options struct {
	// Addr is the interface:port to listen on.
	Addr string
	// Debounce coalesces bursts of events on one path.
	Debounce time.Duration
	// Registry, when set, is served on /metrics.
	Registry *prom.Registry
}

// Server serves the output directory, watches the site roots and rebuilds
// incrementally. Rebuilds run one at a time on a single worker so the site
// is never mutated concurrently.
type Server struct {
	site   *builder.Site
	opts   Options
	hub    *Hub
	logger *log.Logger

	watcher *fsnotify.Watcher
	watched map[string]bool

	mu      sync.Mutex
	pending map[string]*time.Timer
	queue   chan string
}

// New returns a server for a site that has already been built once.
func New(site *builder.Site, opts Options, logger *log.Logger) *Server {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Server{
		site:    site,
		opts:    opts,
		hub:     newHub(logger),
		logger:  logger,
		watched: make(map[string]bool),
		pending: make(map[string]*time.Timer),
		queue:   make(chan string, 256),
	}
}

// Handler serves the built site with the live-reload script injected, the
// live-reload socket and, when configured, Prometheus metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/livereload", s.hub.serveWs)
	if s.opts.Registry != nil {
		r.Handle("/metrics", metrics.HTTPHandler(s.opts.Registry))
	}
	fileServer := http.FileServer(http.Dir(s.site.Layout.Output))
	r.With(middleware.NoCache).Handle("/*", liveReloadWrapper(fileServer))
	return r
}

// Run serves and watches until ctx is done or a fatal rebuild error occurs.
func (s *Server) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()
	s.watcher = watcher

	layout := s.site.Layout
	for _, root := range []string{layout.Content, layout.Templates, layout.Static} {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		if err := s.addRecursive(ctx, root, false); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Serving site", "url", "http://"+s.opts.Addr)
		s.logger.Info("Press Ctrl+C to stop")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return s.watch(ctx) })
	g.Go(func() error { return s.process(ctx) })
	return g.Wait()
}

// addRecursive watches dir and every directory below it. Files found in a
// directory created after startup are scheduled, since their own events
// fired before the watch existed.
func (s *Server) addRecursive(ctx context.Context, dir string, scheduleFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if scheduleFiles {
				s.schedule(ctx, path)
			}
			return nil
		}
		path = filepath.Clean(path)
		if s.watched[path] {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			s.logger.Warn("Could not watch directory", "path", path, "err", err)
			return nil
		}
		s.logger.Debug("Watching directory", "path", path)
		s.watched[path] = true
		return nil
	})
}

func (s *Server) watch(ctx context.Context) error {
	const interesting = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&interesting == 0 {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := s.addRecursive(ctx, event.Name, true); err != nil {
						s.logger.Warn("Could not watch new directory", "path", event.Name, "err", err)
					}
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(s.watched, filepath.Clean(event.Name))
			}
			s.schedule(ctx, event.Name)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Watcher error", "err", err)
		}
	}
}

// schedule queues path once it has been quiet for the debounce interval.
func (s *Server) schedule(ctx context.Context, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.pending[path]; ok && t.Reset(s.opts.Debounce) {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(s.opts.Debounce, func() {
		s.mu.Lock()
		if s.pending[path] == t {
			delete(s.pending, path)
		}
		s.mu.Unlock()
		select {
		case s.queue <- path:
		case <-ctx.Done():
		}
	})
	s.pending[path] = t
}

func (s *Server) process(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-s.queue:
			if err := s.rebuild(ctx, path); err != nil {
				return err
			}
		}
	}
}

// rebuild applies one change. Only fatal errors stop the server; anything
// else is logged and shown in the browser until the next successful rebuild.
func (s *Server) rebuild(ctx context.Context, path string) error {
	rep, err := s.site.HandleChange(ctx, path)
	if err != nil {
		if errors.IsFatal(err) {
			s.logger.Error("Stopping on unrecoverable change", "path", path, "err", err)
			return err
		}
		s.logger.Error("Rebuild failed", "path", path, "err", err)
		s.hub.Error(err)
		return nil
	}
	if rep.Skipped {
		s.logger.Debug("Change ignored", "path", path)
		return nil
	}
	s.logger.Info("Rebuilt",
		"change", rep.Kind.String(),
		"path", s.relative(path),
		"reparsed", rep.Reparsed,
		"rendered", rep.Rendered,
		"copied", rep.Copied)
	s.hub.Reload(s.reloadPath(path, rep.Kind))
	return nil
}

// reloadPath is the URL path of a changed static file, so stylesheets can
// be swapped in place, and the root-relative source path otherwise.
func (s *Server) reloadPath(path string, kind builder.ChangeKind) string {
	if kind == builder.StaticChange {
		if rel, err := filepath.Rel(s.site.Layout.Static, path); err == nil {
			return "/" + filepath.ToSlash(rel)
		}
	}
	return s.relative(path)
}

func (s *Server) relative(path string) string {
	if rel, err := filepath.Rel(s.site.Layout.Root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func liveReloadWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		isHTML := strings.HasSuffix(r.URL.Path, ".html") || strings.HasSuffix(r.URL.Path, "/")
		if !isHTML {
			next.ServeHTTP(w, r)
			return
		}

		iw := newInterceptingWriter(w)
		next.ServeHTTP(iw, r)

		for key, values := range iw.Header() {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		bodyBytes := iw.body.Bytes()
		if iw.statusCode != http.StatusOK {
			w.WriteHeader(iw.statusCode)
			w.Write(bodyBytes)
			return
		}

		injected := injectScript(bodyBytes)
		w.Header().Set("Content-Length", fmt.Sprint(len(injected)))
		w.WriteHeader(iw.statusCode)
		w.Write(injected)
	})
}

// injectScript adds the live-reload script before </body>, or at the end of
// documents without one.
func injectScript(body []byte) []byte {
	if bytes.Contains(body, []byte("</body>")) {
		return bytes.Replace(body, []byte("</body>"), []byte(liveReloadScript+"</body>"), 1)
	}
	return append(body, liveReloadScript...)
}

type interceptingWriter struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	header     http.Header
}

func newInterceptingWriter(w http.ResponseWriter) *interceptingWriter {
	return &interceptingWriter{
		ResponseWriter: w,
		body:           new(bytes.Buffer),
		header:         make(http.Header),
		statusCode:     http.StatusOK,
	}
}

func (iw *interceptingWriter) Header() http.Header {
	return iw.header
}

func (iw *interceptingWriter) Write(b []byte) (int, error) {
	return iw.body.Write(b)
}

func (iw *interceptingWriter) WriteHeader(statusCode int) {
	iw.statusCode = statusCode
}

const liveReloadScript = `
<script>
  (function() {
    let socket = new WebSocket("ws://" + window.location.host + "/livereload");
    socket.onmessage = function(event) {
      let msg = JSON.parse(event.data);
      if (msg.command === "error") {
        console.error("Rebuild failed: " + msg.message);
        return;
      }
      if (msg.command !== "reload") {
        return;
      }
      if (msg.path && msg.path.endsWith(".css")) {
        document.querySelectorAll('link[rel="stylesheet"]').forEach(function(link) {
          let url = new URL(link.href);
          if (url.pathname === msg.path) {
            url.searchParams.set("livereload", Date.now());
            link.href = url.toString();
          }
        });
        return;
      }
      window.location.reload();
    };
    socket.onerror = function() {
      console.error("Live reload connection error. Please restart 'quire serve'.");
    };
  })();
</script>
`
