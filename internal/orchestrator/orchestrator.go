// Package orchestrator runs translation rounds: one request tried against
// each enabled endpoint in turn, starting from the registry's primary.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/valpere/bolcha/internal/endpoint"
	"github.com/valpere/bolcha/internal/logging"
	"github.com/valpere/bolcha/internal/translator"
)

var (
	// ErrNoEndpoints means no enabled endpoint exists; nothing was attempted.
	ErrNoEndpoints = errors.New("no translation endpoints configured")
	// ErrExhausted means every enabled endpoint failed this round.
	ErrExhausted = errors.New("all translation endpoints failed")
)

type Attempt struct {
	Endpoint string
	Latency  time.Duration
	Err      error
}

type RoundResult struct {
	Text     string
	Endpoint string
	Index    int
	Attempts []Attempt
}

type Orchestrator struct {
	registry *endpoint.Registry
	backend  translator.Backend
	log      logrus.FieldLogger
}

func New(registry *endpoint.Registry, backend translator.Backend, log logrus.FieldLogger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		backend:  backend,
		log:      logging.OrDiscard(log),
	}
}

// Round tries the request against the primary endpoint, then each following
// enabled endpoint, wrapping around. The first success is promoted to primary.
// If all fail, the round is reported to the registry and ErrExhausted is
// returned wrapping every attempt's error.
func (o *Orchestrator) Round(ctx context.Context, req translator.TranslateRequest) (*RoundResult, error) {
	active, primary := o.registry.Snapshot()
	if len(active) == 0 {
		return nil, ErrNoEndpoints
	}

	result := &RoundResult{Index: -1}
	errs := make([]error, 0, len(active))

	for i := 0; i < len(active); i++ {
		idx := (primary + i) % len(active)
		url := active[idx].URL

		start := time.Now()
		text, err := o.backend.Invoke(ctx, url, req)
		result.Attempts = append(result.Attempts, Attempt{Endpoint: url, Latency: time.Since(start), Err: err})

		if err == nil {
			o.registry.ReportSuccess(idx)
			result.Text = text
			result.Endpoint = url
			result.Index = idx
			return result, nil
		}

		o.log.WithError(err).WithFields(logrus.Fields{
			"endpoint": url,
			"target":   req.TargetLang,
		}).Debug("translation endpoint failed")
		errs = append(errs, err)

		if ctx.Err() != nil {
			// an abandoned round says nothing about endpoint health
			return result, fmt.Errorf("translation round interrupted: %w", ctx.Err())
		}
	}

	o.registry.ReportRoundFailure()
	o.log.WithFields(logrus.Fields{
		"endpoints": len(active),
		"target":    req.TargetLang,
	}).Warn("translation round exhausted")

	return result, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}
