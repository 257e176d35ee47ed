package translator

import (
	"context"
	"fmt"
	"net/url"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// SchemeGoogle routes an endpoint such as "google://my-project" to Google
// Cloud Translation instead of the HTTP protocol.
const SchemeGoogle = "google"

type GoogleBackend struct {
	cfg ServiceConfig
}

func NewGoogleBackend(cfg ServiceConfig) *GoogleBackend {
	return &GoogleBackend{cfg: cfg}
}

func (s *GoogleBackend) Name() string {
	return "google"
}

func (s *GoogleBackend) Invoke(ctx context.Context, endpointURL string, req TranslateRequest) (string, error) {
	wrap := func(err error) error {
		return &Error{Endpoint: endpointURL, Method: "google", Err: err}
	}

	targetLangTag, err := language.Parse(req.TargetLang)
	if err != nil {
		return "", wrap(fmt.Errorf("%w: invalid target language: %v", ErrRejected, err))
	}

	opts := []option.ClientOption{}
	if s.cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(s.cfg.Credentials))
	}
	if project := projectFromURL(endpointURL, s.cfg.ProjectID); project != "" {
		opts = append(opts, option.WithQuotaProject(project))
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return "", wrap(fmt.Errorf("%w: failed to create client: %v", ErrTransport, err))
	}
	defer client.Close()

	translations, err := client.Translate(ctx, []string{req.Text}, targetLangTag, &translate.Options{
		Format: translate.Text,
	})
	if err != nil {
		return "", wrap(fmt.Errorf("%w: %v", ErrTransport, err))
	}
	if len(translations) == 0 {
		return "", wrap(fmt.Errorf("%w: no translation returned", ErrMalformed))
	}

	text, err := finish(translations[0].Text)
	if err != nil {
		return "", wrap(err)
	}
	return text, nil
}

func projectFromURL(endpointURL, fallback string) string {
	u, err := url.Parse(endpointURL)
	if err == nil && u.Host != "" {
		return u.Host
	}
	return fallback
}
