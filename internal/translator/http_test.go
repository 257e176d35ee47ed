package translator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestBackend(server *httptest.Server, opts ...HTTPOption) *HTTPBackend {
	opts = append([]HTTPOption{WithHTTPClient(server.Client())}, opts...)
	return NewHTTPBackend(5*time.Second, opts...)
}

func TestHTTPBackend_Name(t *testing.T) {
	if NewHTTPBackend(0).Name() != "http" {
		t.Error("expected name 'http'")
	}
}

func TestHTTPBackend_Invoke_PostJSON(t *testing.T) {
	var gets atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body["text"] != "Hello" || body["target"] != "ja" {
			t.Errorf("unexpected body: %v", body)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "text": "こんにちは"})
	}))
	defer server.Close()

	got, err := newTestBackend(server).Invoke(context.Background(), server.URL, TranslateRequest{Text: "Hello", TargetLang: "ja"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "こんにちは" {
		t.Errorf("expected 'こんにちは', got %q", got)
	}
	if gets.Load() != 0 {
		t.Errorf("expected no GET fallback, got %d", gets.Load())
	}
}

func TestHTTPBackend_Invoke_FallsBackToGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		if q.Get("text") != "Hello world" || q.Get("target") != "fr" {
			t.Errorf("unexpected query: %v", q)
		}
		io.WriteString(w, "Bonjour le monde")
	}))
	defer server.Close()

	got, err := newTestBackend(server).Invoke(context.Background(), server.URL, TranslateRequest{Text: "Hello world", TargetLang: "fr"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Bonjour le monde" {
		t.Errorf("expected plain-text fallback result, got %q", got)
	}
}

func TestHTTPBackend_Invoke_MalformedPostFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			io.WriteString(w, "<html><body>Sign in</body></html>")
			return
		}
		io.WriteString(w, `{"translation":"Hallo"}`)
	}))
	defer server.Close()

	got, err := newTestBackend(server).Invoke(context.Background(), server.URL, TranslateRequest{Text: "Hello", TargetLang: "de"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hallo" {
		t.Errorf("expected 'Hallo', got %q", got)
	}
}

func TestHTTPBackend_Invoke_BothFail(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestBackend(server).Invoke(context.Background(), server.URL, TranslateRequest{Text: "Hello", TargetLang: "ja"})
	if err == nil {
		t.Fatal("expected error when both submissions fail")
	}
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *Error in chain, got %T", err)
	}
	if terr.Endpoint != server.URL {
		t.Errorf("expected endpoint %s, got %s", server.URL, terr.Endpoint)
	}
	if calls.Load() != 2 {
		t.Errorf("expected exactly 2 submissions, got %d", calls.Load())
	}
}

func TestHTTPBackend_Invoke_RejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":429,"text":"Too many requests"}`)
	}))
	defer server.Close()

	_, err := newTestBackend(server).Invoke(context.Background(), server.URL, TranslateRequest{Text: "Hello", TargetLang: "ja"})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("expected rejected error, got %v", err)
	}
	if errors.Is(err, ErrTransport) {
		t.Errorf("did not expect a transport error, got %v", err)
	}
}

func TestHTTPBackend_Invoke_Unreachable(t *testing.T) {
	b := NewHTTPBackend(200 * time.Millisecond)

	_, err := b.Invoke(context.Background(), "http://127.0.0.1:1", TranslateRequest{Text: "Hello", TargetLang: "ja"})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestHTTPBackend_Invoke_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		io.WriteString(w, "late")
	}))
	defer server.Close()

	b := NewHTTPBackend(50*time.Millisecond, WithHTTPClient(server.Client()))
	_, err := b.Invoke(context.Background(), server.URL, TranslateRequest{Text: "Hello", TargetLang: "ja"})
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected transport error on timeout, got %v", err)
	}
}

type stubValidator struct{ ok bool }

func (s stubValidator) IsValid(string, string) (bool, error) {
	if s.ok {
		return true, nil
	}
	return false, errors.New("expected ja but detected en")
}

func TestHTTPBackend_Invoke_Validator(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"text":"Hello"}`)
	}))
	defer server.Close()

	_, err := newTestBackend(server, WithValidator(stubValidator{ok: false})).
		Invoke(context.Background(), server.URL, TranslateRequest{Text: "Hello", TargetLang: "ja"})
	if !errors.Is(err, ErrWrongLanguage) {
		t.Errorf("expected wrong-language error, got %v", err)
	}

	got, err := newTestBackend(server, WithValidator(stubValidator{ok: true})).
		Invoke(context.Background(), server.URL, TranslateRequest{Text: "Hello", TargetLang: "ja"})
	if err != nil || got != "Hello" {
		t.Errorf("expected accepted result, got %q, %v", got, err)
	}
}

type namedBackend struct {
	name  string
	calls atomic.Int32
}

func (b *namedBackend) Name() string { return b.name }

func (b *namedBackend) Invoke(ctx context.Context, endpointURL string, req TranslateRequest) (string, error) {
	b.calls.Add(1)
	return b.name, nil
}

func TestRouter_Dispatch(t *testing.T) {
	def := &namedBackend{name: "http"}
	google := &namedBackend{name: "google"}
	r := NewRouter(def).Handle(SchemeGoogle, google)

	tests := []struct {
		url  string
		want string
	}{
		{"https://script.example.com/exec", "http"},
		{"google://my-project", "google"},
		{"GOOGLE://other", "google"},
		{"::not a url", "http"},
	}
	for _, tt := range tests {
		got, err := r.Invoke(context.Background(), tt.url, TranslateRequest{Text: "x", TargetLang: "ja"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tt.want {
			t.Errorf("Invoke(%q) routed to %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestProjectFromURL(t *testing.T) {
	if got := projectFromURL("google://proj-1", "fallback"); got != "proj-1" {
		t.Errorf("expected proj-1, got %q", got)
	}
	if got := projectFromURL("google:", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
}

func TestGoogleBackend_InvalidTarget(t *testing.T) {
	_, err := NewGoogleBackend(ServiceConfig{}).Invoke(context.Background(), "google://p", TranslateRequest{Text: "x", TargetLang: "not a tag!"})
	if !errors.Is(err, ErrRejected) {
		t.Errorf("expected rejected error for invalid target, got %v", err)
	}
}
