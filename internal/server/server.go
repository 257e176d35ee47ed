// Package server exposes the translation core over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/valpere/bolcha/internal"
	"github.com/valpere/bolcha/internal/detector"
	"github.com/valpere/bolcha/internal/endpoint"
	"github.com/valpere/bolcha/internal/logging"
	"github.com/valpere/bolcha/internal/scheduler"
)

const maxBodyBytes = 1 << 20

type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, bool)
}

type Messages interface {
	CreateMessage(ctx context.Context, m internal.Message) error
	RecentMessages(ctx context.Context, roomID string, limit int) ([]internal.Message, error)
}

type Server struct {
	tr       Translator
	messages Messages
	sched    *scheduler.Scheduler
	registry *endpoint.Registry
	limit    int
	log      logrus.FieldLogger

	backfills sync.WaitGroup
}

func New(tr Translator, messages Messages, sched *scheduler.Scheduler, registry *endpoint.Registry, limit int, log logrus.FieldLogger) *Server {
	if limit <= 0 {
		limit = scheduler.DefaultBackfillLimit
	}
	return &Server{
		tr:       tr,
		messages: messages,
		sched:    sched,
		registry: registry,
		limit:    limit,
		log:      logging.OrDiscard(log),
	}
}

// Handler returns the API routes wrapped in a permissive CORS policy.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/translate", s.handleTranslate)
	mux.HandleFunc("POST /api/rooms/{room}/messages", s.handleSend)
	mux.HandleFunc("GET /api/rooms/{room}/messages", s.handleList)
	mux.HandleFunc("GET /api/endpoints", s.handleEndpoints)
	mux.HandleFunc("GET /api/detect", s.handleDetect)

	return cors.Default().Handler(mux)
}

// Run serves on addr until ctx is cancelled, then shuts down and waits for
// running backfills.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.backfills.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Wait blocks until background backfills started by the handlers finish.
func (s *Server) Wait() {
	s.backfills.Wait()
}

type translateRequest struct {
	Text   string `json:"text"`
	Target string `json:"target"`
}

type translateResponse struct {
	Translation *string `json:"translation"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req translateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	lang, ok := targetLang(req.Target)
	if !ok {
		writeError(w, "invalid target language", http.StatusBadRequest)
		return
	}

	var resp translateResponse
	if text, ok := s.tr.Translate(r.Context(), req.Text, lang); ok {
		resp.Translation = &text
	}
	writeJSON(w, resp, http.StatusOK)
}

type sendRequest struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "invalid request payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, "text is required", http.StatusBadRequest)
		return
	}

	m := internal.NewMessage(r.PathValue("room"), req.Author, req.Text)
	if err := s.messages.CreateMessage(r.Context(), m); err != nil {
		s.log.WithError(err).Error("failed to create message")
		writeError(w, "failed to create message", http.StatusInternalServerError)
		return
	}
	writeJSON(w, m, http.StatusCreated)
}

type messageView struct {
	internal.Message
	Display string `json:"display"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	lang := r.URL.Query().Get("lang")
	if lang != "" {
		var ok bool
		if lang, ok = targetLang(lang); !ok {
			writeError(w, "invalid language", http.StatusBadRequest)
			return
		}
	}

	msgs, err := s.messages.RecentMessages(r.Context(), room, s.limit)
	if err != nil {
		s.log.WithError(err).Error("failed to load messages")
		writeError(w, "failed to load messages", http.StatusInternalServerError)
		return
	}

	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		display := m.Text
		if lang != "" {
			display = s.sched.Display(m, lang)
		}
		views = append(views, messageView{Message: m, Display: display})
	}

	if lang != "" {
		s.startBackfill(room, lang)
	}
	writeJSON(w, views, http.StatusOK)
}

func (s *Server) startBackfill(room, lang string) {
	s.backfills.Add(1)
	go func() {
		defer s.backfills.Done()
		n, err := s.sched.Backfill(context.Background(), room, lang)
		log := s.log.WithFields(logrus.Fields{"room": room, "lang": lang})
		if err != nil {
			log.WithError(err).Warn("backfill failed")
			return
		}
		log.WithField("translated", n).Debug("backfill done")
	}()
}

type endpointsResponse struct {
	Endpoints  []endpoint.Endpoint `json:"endpoints"`
	Primary    int                 `json:"primary"`
	FailStreak int                 `json:"fail_streak"`
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	eps, primary := s.registry.Snapshot()
	if eps == nil {
		eps = []endpoint.Endpoint{}
	}
	writeJSON(w, endpointsResponse{
		Endpoints:  eps,
		Primary:    primary,
		FailStreak: s.registry.FailStreak(),
	}, http.StatusOK)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"lang": detector.Detect(r.URL.Query().Get("text"))}, http.StatusOK)
}

// targetLang validates a BCP 47 tag and reduces it to the two-letter code
// used for cache keys and message translations.
func targetLang(tag string) (string, bool) {
	if _, err := language.Parse(tag); err != nil {
		return "", false
	}
	return detector.Normalize(tag), true
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warn("failed to encode JSON response")
	}
}
