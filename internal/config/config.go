// Package config loads bolcha settings from a YAML file, BOLCHA_* environment
// variables and command-line flags, and reports changes to the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/valpere/bolcha/internal/endpoint"
	"github.com/valpere/bolcha/internal/logging"
)

const (
	KeyEndpoints      = "gasEndpoints"
	KeySeedEndpoints  = "seed_endpoints"
	KeyRequestTimeout = "request_timeout"
	KeyQueueDelay     = "queue_delay"
	KeyBackfillLimit  = "backfill_limit"
	KeyDB             = "db"
	KeySession        = "session"
	KeyValidateOutput = "validate_output"
	KeyListen         = "listen"
	KeyCredentials    = "google.credentials"
	KeyProject        = "google.project"
	KeyLogLevel       = "log.level"
	KeyLogFormat      = "log.format"

	EnvPrefix      = "BOLCHA"
	DefaultFile    = "bolcha.yaml"
	DefaultDB      = "./data/bolcha.db"
	DefaultListen  = ":8080"
	DefaultTimeout = 10 * time.Second
)

type Config struct {
	Endpoints         []endpoint.Endpoint
	RequestTimeout    time.Duration
	QueueDelay        time.Duration
	BackfillLimit     int
	DBPath            string
	Session           string
	ValidateOutput    bool
	Listen            string
	GoogleCredentials string
	GoogleProject     string
	LogLevel          string
	LogFormat         string
}

type Loader struct {
	mu  sync.Mutex
	v   *viper.Viper
	log logrus.FieldLogger
}

// New prepares a loader. An empty file searches for bolcha.yaml in the
// working directory and in $HOME/.config/bolcha.
func New(file string, log logrus.FieldLogger) *Loader {
	v := viper.New()

	v.SetDefault(KeySeedEndpoints, []string{})
	v.SetDefault(KeyRequestTimeout, DefaultTimeout)
	v.SetDefault(KeyQueueDelay, 300*time.Millisecond)
	v.SetDefault(KeyBackfillLimit, 50)
	v.SetDefault(KeyDB, DefaultDB)
	v.SetDefault(KeyValidateOutput, false)
	v.SetDefault(KeyListen, DefaultListen)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("bolcha")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "bolcha"))
		}
	}

	return &Loader{v: v, log: logging.OrDiscard(log)}
}

func (l *Loader) SetLogger(log logrus.FieldLogger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log = logging.OrDiscard(log)
}

// Viper exposes the underlying instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads the configuration file, if any, and returns the merged settings.
// A missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return l.current(), nil
}

func (l *Loader) current() *Config {
	v := l.v
	return &Config{
		Endpoints:         ParseEndpoints(v.Get(KeyEndpoints), stringList(v.Get(KeySeedEndpoints))),
		RequestTimeout:    v.GetDuration(KeyRequestTimeout),
		QueueDelay:        v.GetDuration(KeyQueueDelay),
		BackfillLimit:     v.GetInt(KeyBackfillLimit),
		DBPath:            v.GetString(KeyDB),
		Session:           v.GetString(KeySession),
		ValidateOutput:    v.GetBool(KeyValidateOutput),
		Listen:            v.GetString(KeyListen),
		GoogleCredentials: v.GetString(KeyCredentials),
		GoogleProject:     v.GetString(KeyProject),
		LogLevel:          v.GetString(KeyLogLevel),
		LogFormat:         v.GetString(KeyLogFormat),
	}
}

// File returns the configuration file in use, or "" when none was found.
func (l *Loader) File() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v.ConfigFileUsed()
}

// Watch calls onChange with the reloaded settings every time the
// configuration file changes. It does nothing when no file is in use.
func (l *Loader) Watch(onChange func(*Config)) {
	file := l.File()
	if file == "" {
		l.log.Debug("no config file, not watching")
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.mu.Lock()
		cfg := l.current()
		l.mu.Unlock()

		l.log.WithFields(logrus.Fields{
			"file":      e.Name,
			"endpoints": len(cfg.Endpoints),
		}).Info("configuration changed")
		onChange(cfg)
	})
	l.v.WatchConfig()
	l.log.WithField("file", file).Debug("watching config")
}

// SetEndpoints replaces the endpoint list and writes the configuration back
// to its file, creating bolcha.yaml when none is in use.
func (l *Loader) SetEndpoints(eps []endpoint.Endpoint) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	list := make([]map[string]any, 0, len(eps))
	for _, ep := range eps {
		list = append(list, map[string]any{"url": ep.URL, "enabled": ep.Enabled})
	}
	l.v.Set(KeyEndpoints, list)

	path := l.v.ConfigFileUsed()
	if path == "" {
		path = DefaultFile
	}
	if err := l.v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

// ParseEndpoints accepts the legacy list of URL strings, the current list of
// {url, enabled} objects, or a comma separated string. An absent or empty
// list falls back to seed, all enabled.
func ParseEndpoints(raw any, seed []string) []endpoint.Endpoint {
	var eps []endpoint.Endpoint

	switch list := raw.(type) {
	case string, []string:
		for _, u := range stringList(list) {
			eps = append(eps, endpoint.Endpoint{URL: u, Enabled: true})
		}
	case []any:
		for _, item := range list {
			if ep, ok := parseEndpoint(item); ok {
				eps = append(eps, ep)
			}
		}
	case []map[string]any:
		for _, item := range list {
			if ep, ok := parseEndpoint(item); ok {
				eps = append(eps, ep)
			}
		}
	}

	if len(eps) > 0 {
		return eps
	}
	for _, u := range seed {
		eps = append(eps, endpoint.Endpoint{URL: u, Enabled: true})
	}
	return eps
}

func parseEndpoint(item any) (endpoint.Endpoint, bool) {
	var fields map[string]any
	switch v := item.(type) {
	case string:
		u := strings.TrimSpace(v)
		return endpoint.Endpoint{URL: u, Enabled: true}, u != ""
	case map[string]any:
		fields = v
	case map[any]any:
		fields = make(map[string]any, len(v))
		for k, val := range v {
			fields[fmt.Sprint(k)] = val
		}
	default:
		return endpoint.Endpoint{}, false
	}

	u, _ := fields["url"].(string)
	u = strings.TrimSpace(u)
	if u == "" {
		return endpoint.Endpoint{}, false
	}
	enabled := true
	if e, ok := fields["enabled"].(bool); ok {
		enabled = e
	}
	return endpoint.Endpoint{URL: u, Enabled: enabled}, true
}

func stringList(raw any) []string {
	var items []string
	switch v := raw.(type) {
	case string:
		items = strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\n' || r == '\t'
		})
	case []string:
		items = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
