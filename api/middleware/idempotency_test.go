package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
	gets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.gets++
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

// newTestRouter mounts the middleware the way the api router does, as a
// Use on the /api/v1 subrouter, so requests exercise the real chi flow.
func newTestRouter(store *fakeStore, handler http.HandlerFunc, calls *int) http.Handler {
	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls++
		}
		handler(w, r)
	})
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil, 0))
		r.Route("/students/{studentID}", func(r chi.Router) {
			r.Post("/attendance", wrapped)
			r.Post("/payments", wrapped)
		})
		r.Get("/ledgers", wrapped)
		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", wrapped)
			r.Route("/{appointmentID}", func(r chi.Router) {
				r.Post("/decision", wrapped)
				r.Delete("/", wrapped)
			})
		})
	})
	return r
}

func createdHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

func TestRouteTTLSelection(t *testing.T) {
	base := 24 * time.Hour
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"attendance", http.MethodPost, "/api/v1/students/123/attendance", base * criticalTTLFactor, true},
		{"payments", http.MethodPost, "/api/v1/students/123/payments", base * criticalTTLFactor, true},
		{"appointment create", http.MethodPost, "/api/v1/appointments", base, true},
		{"appointment create trailing slash", http.MethodPost, "/api/v1/appointments/", base, true},
		{"appointment decision", http.MethodPost, "/api/v1/appointments/abc/decision", base, true},
		{"appointment cancel", http.MethodPost, "/api/v1/appointments/abc/cancel", base, true},
		{"appointment delete", http.MethodDelete, "/api/v1/appointments/abc", base * criticalTTLFactor, true},
		{"ledger read", http.MethodGet, "/api/v1/ledgers", 0, false},
		{"reconcile", http.MethodPost, "/api/v1/admin/reconcile", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.path, base)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyActivatesUnderSubrouter(t *testing.T) {
	store := newFakeStore()
	var calls int
	router := newTestRouter(store, createdHandler, &calls)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{"slot":"monday"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key, got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatalf("handler should not run without idempotency key")
	}

	keyed := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{"slot":"monday"}`))
	keyed.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, keyed)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if store.gets == 0 {
		t.Fatal("store was never consulted on the request path")
	}
	if len(store.data) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.data))
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	router := newTestRouter(store, createdHandler, &calls)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{"foo":"bar"}`))
	req.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{"foo":"bar"}`))
	replay.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, replay)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	router := newTestRouter(store, createdHandler, nil)

	first := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{"slot":"monday"}`))
	first.Header.Set("Idempotency-Key", "abc")
	router.ServeHTTP(httptest.NewRecorder(), first)

	changed := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(`{"slot":"tuesday"}`))
	changed.Header.Set("Idempotency-Key", "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, changed)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key with new body, got %d", rec.Code)
	}
}

func TestIdempotencyMiddlewareSkipsUnlistedRoutes(t *testing.T) {
	store := newFakeStore()
	var calls int
	router := newTestRouter(store, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, &calls)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledgers", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if calls != 1 {
		t.Fatal("reads must pass through without an idempotency key")
	}
	if len(store.data) != 0 {
		t.Fatal("reads must not persist idempotency records")
	}
}
