package contact

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"contact-gateway/contact/infra"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFloodGuard_AllowsThenRejectsSameKey(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	h := FloodGuard(FloodOptions{Limiter: infra.NewFloodStore(0.02, 1)})(next)

	r1 := httptest.NewRequest(http.MethodPost, "http://example/api/contact", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}

	r2 := httptest.NewRequest(http.MethodPost, "http://example/api/contact", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if got := w2.Header().Get("Retry-After"); got != "50" {
		t.Fatalf("expected Retry-After=50, got %q", got)
	}

	// outra chave tem seu próprio bucket
	r3 := httptest.NewRequest(http.MethodPost, "http://example/api/contact", nil)
	r3.RemoteAddr = "10.0.0.2:1234"
	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, r3)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200 for another key, got %d", w3.Code)
	}

	if calls != 2 {
		t.Fatalf("expected next handler to be called twice, got %d", calls)
	}
}

func TestFloodGuard_NilLimiterIsPassthrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	h := FloodGuard(FloodOptions{})(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "http://example/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected passthrough, got %d", w.Code)
	}
}

func TestConcurrencyMiddleware_TimesOutWhenNoSlot(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	secondDone := make(chan struct{})
	var startedOnce sync.Once

	// handler que segura a vaga até liberarmos.
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startedOnce.Do(func() { close(started) })
		<-release
		w.WriteHeader(http.StatusOK)
	})

	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Max:            1,
		AcquireTimeout: 25 * time.Millisecond,
	})(next)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		w1 := httptest.NewRecorder()
		h.ServeHTTP(w1, httptest.NewRequest(http.MethodPost, "http://example/", nil))
		if w1.Code != http.StatusOK {
			t.Errorf("expected first request 200, got %d", w1.Code)
		}
	}()

	select {
	case <-started:
	case <-time.After(200 * time.Millisecond):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting first request to start")
	}

	go func() {
		defer wg.Done()
		w2 := httptest.NewRecorder()
		h.ServeHTTP(w2, httptest.NewRequest(http.MethodPost, "http://example/", nil))
		if w2.Code != http.StatusServiceUnavailable {
			t.Errorf("expected second request 503, got %d", w2.Code)
		}
		close(secondDone)
	}()

	// a segunda precisa terminar antes de liberar a primeira
	select {
	case <-secondDone:
	case <-time.After(500 * time.Millisecond):
		close(release)
		wg.Wait()
		t.Fatalf("timeout waiting second request to finish")
	}

	close(release)
	wg.Wait()
}

func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside")
	})
	h := RequestID(log)(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://example/", nil))
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Contains(t, buf.String(), id)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
