// Package cache holds translated texts for the current session, keyed by
// target language and exact source text.
package cache

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/valpere/bolcha/internal/logging"
)

// Persister stores session entries so a restart within the same session
// does not translate again.
type Persister interface {
	LoadSessionCache(ctx context.Context, session string) (map[string]string, error)
	SaveSessionEntry(ctx context.Context, session, key, text string) error
}

// Key builds the cache key. No normalisation is applied to text.
func Key(lang, text string) string {
	return lang + ":" + text
}

// TextCache never expires entries: a stored translation is authoritative for
// its key until the session is cleared.
type TextCache struct {
	mu      sync.RWMutex
	entries map[string]string
	persist Persister
	session string
	log     logrus.FieldLogger
}

// New returns an in-memory cache. persist may be nil.
func New(persist Persister, session string, log logrus.FieldLogger) *TextCache {
	return &TextCache{
		entries: make(map[string]string),
		persist: persist,
		session: session,
		log:     logging.OrDiscard(log),
	}
}

// Restore loads the session's persisted entries into memory.
func (c *TextCache) Restore(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	entries, err := c.persist.LoadSessionCache(ctx, c.session)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		c.entries[k] = v
	}
	c.log.WithFields(logrus.Fields{"session": c.session, "entries": len(entries)}).Debug("session cache restored")
	return nil
}

func (c *TextCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores text in memory and then in the session store. A persistence
// failure leaves the in-memory entry in place.
func (c *TextCache) Put(ctx context.Context, key, text string) error {
	c.mu.Lock()
	c.entries[key] = text
	c.mu.Unlock()

	if c.persist == nil {
		return nil
	}
	return c.persist.SaveSessionEntry(ctx, c.session, key, text)
}

func (c *TextCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Session returns the session id entries are persisted under.
func (c *TextCache) Session() string {
	return c.session
}
