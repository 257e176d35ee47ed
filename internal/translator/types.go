package translator

import (
	"context"
	"time"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	ProjectID   string        `mapstructure:"project_id" json:"project_id"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
}

type TranslateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"target"`
}

// Backend performs one translation attempt against a single endpoint.
type Backend interface {
	Name() string
	Invoke(ctx context.Context, endpointURL string, req TranslateRequest) (string, error)
}

// Validator checks that a translation is written in the target language.
type Validator interface {
	IsValid(translatedText, targetLang string) (bool, error)
}
