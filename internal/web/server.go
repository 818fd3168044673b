package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/baalimago/worklog/internal/models"
	"github.com/baalimago/worklog/internal/session"
)

const (
	SessionCookie = "worklog_session"
	maxMessageLen = 16 << 10
	shutdownGrace = 5 * time.Second
)

//go:embed page.html
var pageHTML string

var page = template.Must(template.New("page").Parse(pageHTML))

// Server is the web shell around the session store.
type Server struct {
	store *session.Store
	mux   *http.ServeMux
	debug bool
}

func NewServer(store *session.Store) *Server {
	s := &Server{
		store: store,
		mux:   http.NewServeMux(),
		debug: misc.Truthy(os.Getenv("DEBUG")) || misc.Truthy(os.Getenv("DEBUG_WEB")),
	}
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/worklog", s.handleWorklog)
	s.mux.HandleFunc("POST /api/message", s.handleMessage)
	s.mux.HandleFunc("POST /api/reset", s.handleReset)
	return s
}

func (s *Server) Handler() http.Handler {
	if s.debug {
		return logRequests(s.mux)
	}
	return s.mux
}

// Serve on addr until ctx is done, then shut down gracefully. Streams in progress
// are cancelled along with ctx.
func (s *Server) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on '%v': %w", addr, err)
	}
	return s.serve(ctx, lis)
}

func (s *Server) serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	ancli.Okf("serving work-log generator on: http://%v\n", lis.Addr())
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Serve(lis)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown: %w", err)
		}
		if err := <-errChan; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	}
}

// sessionFor the request, creating one and setting the cookie if needed.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.store.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, sess.Snapshot()); err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to render page: %v\n", err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.store.Len()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionFor(w, r).Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionFor(w, r).Reset())
}

func (s *Server) handleWorklog(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.sessionFor(w, r).Worklog()
	if !ok {
		http.Error(w, "no work-log has been generated yet", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "worklog-"+time.Now().Format("2006-01-02")+".md"))
	_, _ = w.Write([]byte(doc + "\n"))
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageLen)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("message must be at most %v bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("failed to parse form: %v", err), http.StatusBadRequest)
		return
	}
	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		http.Error(w, "message must not be empty", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	sess := s.sessionFor(w, r)

	stream := &eventStream{w: w, flusher: flusher}
	err := sess.Respond(r.Context(), message, func(snap session.Snapshot) {
		stream.send("transcript", transcriptEvent{Messages: snap.Messages, Streaming: snap.Streaming})
		if !snap.Streaming {
			stream.send("panel", snap.Panel)
		}
	})
	if err == nil {
		return
	}
	if !stream.started {
		if errors.Is(err, session.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		ancli.PrintErr(fmt.Sprintf("session '%v': %v\n", sess.ID, err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if !errors.Is(err, session.ErrReset) {
		ancli.PrintErr(fmt.Sprintf("session '%v': %v\n", sess.ID, err))
	}
	stream.send("error", map[string]string{"error": err.Error()})
}

type transcriptEvent struct {
	Messages  []models.Message `json:"messages"`
	Streaming bool             `json:"streaming"`
}

// eventStream writes server-sent events, setting the headers on the first one.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func (es *eventStream) send(event string, v any) {
	if !es.started {
		h := es.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		es.w.WriteHeader(http.StatusOK)
		es.started = true
	}
	data, err := json.Marshal(v)
	if err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to encode event '%v': %v\n", event, err))
		return
	}
	fmt.Fprintf(es.w, "event: %s\ndata: %s\n\n", event, data)
	es.flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ancli.PrintErr(fmt.Sprintf("failed to encode response: %v\n", err))
	}
}
