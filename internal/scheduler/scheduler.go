// Package scheduler decides which messages get translated for a viewer and
// keeps at most one request per message and language in flight.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/bolcha/internal"
	"github.com/valpere/bolcha/internal/detector"
	"github.com/valpere/bolcha/internal/logging"
)

// DefaultBackfillLimit is how many of a room's most recent messages are
// translated on load.
const DefaultBackfillLimit = 50

// MessageStore is the persisted per-message translation tier.
type MessageStore interface {
	RecentMessages(ctx context.Context, roomID string, limit int) ([]internal.Message, error)
	SaveTranslation(ctx context.Context, messageID, lang, text string) error
}

// Translator returns false when no translation is available.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, bool)
}

type key struct {
	id   string
	lang string
}

type Scheduler struct {
	store MessageStore
	tr    Translator
	limit int
	log   logrus.FieldLogger

	mu       sync.Mutex
	inFlight map[key]struct{}
	local    map[key]string
}

func New(store MessageStore, tr Translator, backfillLimit int, log logrus.FieldLogger) *Scheduler {
	if backfillLimit <= 0 {
		backfillLimit = DefaultBackfillLimit
	}
	return &Scheduler{
		store:    store,
		tr:       tr,
		limit:    backfillLimit,
		log:      logging.OrDiscard(log),
		inFlight: make(map[key]struct{}),
		local:    make(map[key]string),
	}
}

// NeedsTranslation reports whether m should be translated into lang: it is in
// another language, no translation is cached for it, and none is in flight.
func (s *Scheduler) NeedsTranslation(m internal.Message, lang string) bool {
	lang = detector.Normalize(lang)
	if m.OriginalLang == lang {
		return false
	}
	if _, ok := m.Translation(lang); ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{m.ID, lang}
	if _, ok := s.local[k]; ok {
		return false
	}
	_, busy := s.inFlight[k]
	return !busy
}

// Display returns the text to show for m in lang, falling back to the
// original text when no translation is known.
func (s *Scheduler) Display(m internal.Message, lang string) string {
	lang = detector.Normalize(lang)
	if m.OriginalLang == lang {
		return m.Text
	}
	if t, ok := m.Translation(lang); ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.local[key{m.ID, lang}]; ok {
		return t
	}
	return m.Text
}

// Request translates m into lang unless that is unnecessary or already in
// progress. It returns the text to display and whether it is a translation
// (or the original, for a message already in lang).
func (s *Scheduler) Request(ctx context.Context, m internal.Message, lang string) (string, bool) {
	lang = detector.Normalize(lang)
	k := key{m.ID, lang}

	if m.OriginalLang == lang {
		s.mu.Lock()
		s.local[k] = m.Text
		s.mu.Unlock()
		return m.Text, true
	}
	if t, ok := m.Translation(lang); ok {
		return t, true
	}

	s.mu.Lock()
	if t, ok := s.local[k]; ok {
		s.mu.Unlock()
		return t, true
	}
	if _, busy := s.inFlight[k]; busy {
		s.mu.Unlock()
		return m.Text, false
	}
	s.inFlight[k] = struct{}{}
	s.mu.Unlock()

	text, ok := s.tr.Translate(ctx, m.Text, lang)

	s.mu.Lock()
	delete(s.inFlight, k)
	if ok {
		s.local[k] = text
	}
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{"message": m.ID, "lang": lang})
	if !ok {
		log.Debug("translation unavailable, showing original")
		return m.Text, false
	}

	// written after the in-flight marker is gone
	if err := s.store.SaveTranslation(ctx, m.ID, lang, text); err != nil {
		log.WithError(err).Warn("failed to persist translation")
	}
	return text, true
}

// Visible requests translations for every message in msgs that needs one,
// concurrently. The translator serialises the actual backend calls. It
// returns how many messages were translated.
func (s *Scheduler) Visible(ctx context.Context, msgs []internal.Message, lang string) (int, error) {
	var translated atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range msgs {
		if !s.NeedsTranslation(m, lang) {
			continue
		}
		g.Go(func() error {
			if _, ok := s.Request(gctx, m, lang); ok {
				translated.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(translated.Load()), err
	}
	return int(translated.Load()), ctx.Err()
}

// Backfill translates the room's most recent messages newest first, one at a
// time, skipping those that do not need it.
func (s *Scheduler) Backfill(ctx context.Context, roomID, lang string) (int, error) {
	msgs, err := s.store.RecentMessages(ctx, roomID, s.limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load recent messages: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"room":     roomID,
		"lang":     lang,
		"messages": len(msgs),
	}).Debug("backfilling translations")

	translated := 0
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return translated, err
		}
		if !s.NeedsTranslation(m, lang) {
			continue
		}
		if _, ok := s.Request(ctx, m, lang); ok {
			translated++
		}
	}
	return translated, nil
}
