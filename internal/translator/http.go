package translator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/valpere/bolcha/internal/logging"
)

const (
	MethodPost = "POST"
	MethodGet  = "GET"
)

// HTTPBackend talks to script-hosted translation endpoints. Each attempt
// submits a JSON POST first and, on any failure, repeats the request as a GET
// with query parameters. There are no further retries against the endpoint.
type HTTPBackend struct {
	client    *resty.Client
	validator Validator
	log       logrus.FieldLogger
}

type HTTPOption func(*HTTPBackend)

// WithValidator rejects results the validator does not accept.
func WithValidator(v Validator) HTTPOption {
	return func(b *HTTPBackend) { b.validator = v }
}

// WithLogger sets the logger used for per-submission failures.
func WithLogger(log logrus.FieldLogger) HTTPOption {
	return func(b *HTTPBackend) { b.log = log }
}

// WithHTTPClient replaces the underlying HTTP client, keeping the timeout.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(b *HTTPBackend) {
		timeout := b.client.GetClient().Timeout
		b.client = resty.NewWithClient(c).SetTimeout(timeout)
	}
}

// NewHTTPBackend returns a backend whose calls time out after timeout.
// A zero timeout leaves calls unbounded.
func NewHTTPBackend(timeout time.Duration, opts ...HTTPOption) *HTTPBackend {
	b := &HTTPBackend{
		client: resty.New().SetTimeout(timeout),
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = logging.OrDiscard(b.log)
	return b
}

func (b *HTTPBackend) Name() string {
	return "http"
}

func (b *HTTPBackend) Invoke(ctx context.Context, endpointURL string, req TranslateRequest) (string, error) {
	text, postErr := b.post(ctx, endpointURL, req)
	if postErr == nil {
		return text, nil
	}
	b.log.WithError(postErr).WithField("endpoint", endpointURL).Debug("POST submission failed, falling back to GET")

	text, getErr := b.get(ctx, endpointURL, req)
	if getErr == nil {
		return text, nil
	}
	b.log.WithError(getErr).WithField("endpoint", endpointURL).Debug("GET submission failed")

	return "", errors.Join(postErr, getErr)
}

func (b *HTTPBackend) post(ctx context.Context, endpointURL string, req TranslateRequest) (string, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"text":   req.Text,
			"target": req.TargetLang,
		}).
		Post(endpointURL)
	return b.handle(endpointURL, MethodPost, req, resp, err)
}

func (b *HTTPBackend) get(ctx context.Context, endpointURL string, req TranslateRequest) (string, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"text":   req.Text,
			"target": req.TargetLang,
		}).
		Get(endpointURL)
	return b.handle(endpointURL, MethodGet, req, resp, err)
}

func (b *HTTPBackend) handle(endpointURL, method string, req TranslateRequest, resp *resty.Response, err error) (string, error) {
	wrap := func(err error) error {
		return &Error{Endpoint: endpointURL, Method: method, Err: err}
	}

	if err != nil {
		return "", wrap(fmt.Errorf("%w: %v", ErrTransport, err))
	}
	if !resp.IsSuccess() {
		return "", wrap(fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode()))
	}

	text, err := ParseResponse(resp.String())
	if err != nil {
		return "", wrap(err)
	}

	if b.validator != nil {
		if ok, verr := b.validator.IsValid(text, req.TargetLang); !ok {
			return "", wrap(fmt.Errorf("%w: %v", ErrWrongLanguage, verr))
		}
	}
	return text, nil
}
