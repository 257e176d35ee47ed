package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type memPersister struct {
	mu      sync.Mutex
	data    map[string]map[string]string
	saveErr error
}

func newMemPersister() *memPersister {
	return &memPersister{data: make(map[string]map[string]string)}
}

func (m *memPersister) LoadSessionCache(ctx context.Context, session string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for k, v := range m.data[session] {
		out[k] = v
	}
	return out, nil
}

func (m *memPersister) SaveSessionEntry(ctx context.Context, session, key, text string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[session] == nil {
		m.data[session] = make(map[string]string)
	}
	m.data[session][key] = text
	return nil
}

func TestKey(t *testing.T) {
	if got := Key("ja", "Hello"); got != "ja:Hello" {
		t.Errorf("expected 'ja:Hello', got %q", got)
	}
	if Key("ja", "Hello ") == Key("ja", "Hello") {
		t.Error("expected keys to be exact, without trimming")
	}
}

func TestTextCache_GetPut(t *testing.T) {
	c := New(nil, "", nil)

	if _, ok := c.Get("ja:Hello"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Put(context.Background(), "ja:Hello", "こんにちは"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := c.Get("ja:Hello")
	if !ok || got != "こんにちは" {
		t.Errorf("expected hit 'こんにちは', got %q, %v", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestTextCache_PersistAndRestore(t *testing.T) {
	p := newMemPersister()
	ctx := context.Background()

	first := New(p, "session-1", nil)
	if err := first.Put(ctx, "ko:Hi", "안녕"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := New(p, "session-1", nil)
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if got, ok := second.Get("ko:Hi"); !ok || got != "안녕" {
		t.Errorf("expected restored entry, got %q, %v", got, ok)
	}

	other := New(p, "session-2", nil)
	if err := other.Restore(ctx); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if other.Len() != 0 {
		t.Errorf("expected other session to be empty, got %d", other.Len())
	}
}

func TestTextCache_PersistFailureKeepsMemory(t *testing.T) {
	p := newMemPersister()
	p.saveErr = errors.New("disk full")
	c := New(p, "s", nil)

	if err := c.Put(context.Background(), "zh:Hi", "你好"); err == nil {
		t.Error("expected persistence error")
	}
	if _, ok := c.Get("zh:Hi"); !ok {
		t.Error("expected in-memory entry despite persistence failure")
	}
}
