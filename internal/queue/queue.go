// Package queue is the single entry point for translations. Requests missing
// the cache are serialised through one worker so at most one translation
// round is in flight process-wide, with a fixed pause after every round.
package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/valpere/bolcha/internal/cache"
	"github.com/valpere/bolcha/internal/logging"
	"github.com/valpere/bolcha/internal/orchestrator"
	"github.com/valpere/bolcha/internal/structure"
	"github.com/valpere/bolcha/internal/translator"
)

const (
	DefaultDelay     = 300 * time.Millisecond
	DefaultQueueSize = 256
)

var ErrClosed = errors.New("translation queue closed")

// Rounder runs one translation round across the configured endpoints.
type Rounder interface {
	Round(ctx context.Context, req translator.TranslateRequest) (*orchestrator.RoundResult, error)
}

type Config struct {
	// Delay is the pause after each round before the next queued request.
	Delay time.Duration
	// QueueSize bounds pending requests; senders block when it is full.
	QueueSize int
}

type Request struct {
	Text       string
	TargetLang string
	// Raw skips line-structure reconciliation. Use it when the caller has
	// already split the text into single lines.
	Raw bool
}

type Stats struct {
	Hits     int64
	Misses   int64
	Rounds   int64
	Failures int64
}

type result struct {
	text string
	err  error
}

type job struct {
	req   Request
	reply chan result
}

type Service struct {
	rounds Rounder
	cache  *cache.TextCache
	delay  time.Duration
	log    logrus.FieldLogger

	jobs  chan job
	group singleflight.Group

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	hits, misses, roundsRun, failures atomic.Int64
}

// New starts the worker. Call Close to stop it.
func New(rounds Rounder, c *cache.TextCache, cfg Config, log logrus.FieldLogger) *Service {
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if c == nil {
		c = cache.New(nil, "", log)
	}

	s := &Service{
		rounds: rounds,
		cache:  c,
		delay:  cfg.Delay,
		log:    logging.OrDiscard(log),
		jobs:   make(chan job, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Translate returns the translation of text into targetLang, or false when no
// translation is available. It never returns an error.
func (s *Service) Translate(ctx context.Context, text, targetLang string) (string, bool) {
	out, err := s.TranslateResult(ctx, Request{Text: text, TargetLang: targetLang})
	if err != nil {
		return "", false
	}
	return out, true
}

// TranslateResult is Translate with the failure cause preserved. Cache hits
// return without touching the queue. Concurrent identical requests share one
// queued round.
func (s *Service) TranslateResult(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return req.Text, nil
	}

	key := cache.Key(req.TargetLang, req.Text)
	if v, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return v, nil
	}
	s.misses.Add(1)

	// The shared call waits for the worker regardless of any one caller's
	// context; a queued request always runs to completion.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		return s.enqueue(req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// TranslateLines translates each non-blank line of text on its own, without
// reconciliation, and keeps blank lines where they were.
func (s *Service) TranslateLines(ctx context.Context, text, targetLang string) (string, bool) {
	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			out[i] = line
			continue
		}
		tr, err := s.TranslateResult(ctx, Request{Text: line, TargetLang: targetLang, Raw: true})
		if err != nil {
			return "", false
		}
		out[i] = tr
	}
	return strings.Join(out, "\n"), true
}

func (s *Service) Stats() Stats {
	return Stats{
		Hits:     s.hits.Load(),
		Misses:   s.misses.Load(),
		Rounds:   s.roundsRun.Load(),
		Failures: s.failures.Load(),
	}
}

// Close stops the worker. Requests still queued fail with ErrClosed.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Service) enqueue(req Request) (string, error) {
	j := job{req: req, reply: make(chan result, 1)}
	select {
	case s.jobs <- j:
	case <-s.done:
		return "", ErrClosed
	}

	select {
	case res := <-j.reply:
		return res.text, res.err
	case <-s.done:
		return "", ErrClosed
	}
}

func (s *Service) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case j := <-s.jobs:
			text, err := s.process(j.req)
			j.reply <- result{text: text, err: err}

			if errors.Is(err, orchestrator.ErrNoEndpoints) {
				continue
			}
			if !s.pause() {
				return
			}
		}
	}
}

// process runs one round on a context detached from any caller; there is no
// cancellation once a request has been queued.
func (s *Service) process(req Request) (string, error) {
	ctx := context.Background()
	log := s.log.WithField("target", req.TargetLang)

	res, err := s.rounds.Round(ctx, translator.TranslateRequest{Text: req.Text, TargetLang: req.TargetLang})
	if errors.Is(err, orchestrator.ErrNoEndpoints) {
		log.Debug("no translation endpoints, skipping")
		return "", err
	}
	s.roundsRun.Add(1)
	if err != nil {
		s.failures.Add(1)
		log.WithError(err).Info("translation unavailable")
		return "", err
	}

	text := res.Text
	if !req.Raw {
		text = structure.Reconcile(req.Text, text)
	}

	if err := s.cache.Put(ctx, cache.Key(req.TargetLang, req.Text), text); err != nil {
		log.WithError(err).Warn("failed to persist session cache entry")
	}
	log.WithField("endpoint", res.Endpoint).Debug("translated")
	return text, nil
}

func (s *Service) pause() bool {
	if s.delay <= 0 {
		return true
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.done:
		return false
	}
}
