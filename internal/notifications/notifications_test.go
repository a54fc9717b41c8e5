package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ziadkadry99/sitemermaid/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testNotification(id string, severity Severity, createdAt time.Time, ttl time.Duration) Notification {
	return Notification{
		ID:        id,
		Severity:  severity,
		Title:     "copy",
		Message:   "Sitemap copied to clipboard",
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(ttl),
	}
}

func TestStoreCreate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n := testNotification("n-1", SeverityInfo, epoch, 3*time.Second)
	if _, err := store.Create(ctx, n); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByID(ctx, "n-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != n.Title || got.Message != n.Message {
		t.Errorf("got %+v, want %+v", got, n)
	}
	if !got.CreatedAt.Equal(epoch) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, epoch)
	}
	if !got.ExpiresAt.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("ExpiresAt = %v", got.ExpiresAt)
	}
}

func TestStoreCreateAutoID(t *testing.T) {
	store := setupTestStore(t)

	created, err := store.Create(context.Background(), Notification{Title: "generate"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ID")
	}
	if created.Severity != SeverityInfo {
		t.Errorf("Severity = %q, want info", created.Severity)
	}
	if created.ExpiresAt.Sub(created.CreatedAt) != DefaultSuccessTTL {
		t.Errorf("default ttl = %v", created.ExpiresAt.Sub(created.CreatedAt))
	}
}

func TestStoreGetByIDNotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.GetByID(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreActive(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, n := range []Notification{
		testNotification("ok", SeverityInfo, epoch, 3*time.Second),
		testNotification("fail", SeverityCritical, epoch, 5*time.Second),
	} {
		if _, err := store.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		at   time.Time
		want int
	}{
		{epoch.Add(time.Second), 2},
		{epoch.Add(3500 * time.Millisecond), 1},
		{epoch.Add(5 * time.Second), 0},
	}
	for _, tt := range tests {
		got, err := store.Active(ctx, tt.at)
		if err != nil {
			t.Fatalf("Active: %v", err)
		}
		if len(got) != tt.want {
			t.Errorf("Active(%v) = %d notifications, want %d", tt.at.Sub(epoch), len(got), tt.want)
		}
	}
}

func TestStoreListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i, sev := range []Severity{SeverityInfo, SeverityWarning, SeverityCritical, SeverityCritical} {
		n := testNotification("", sev, epoch.Add(time.Duration(i)*time.Minute), time.Second)
		if _, err := store.Create(ctx, n); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	critical, err := store.List(ctx, ListFilter{Severity: SeverityCritical})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(critical) != 2 {
		t.Errorf("critical = %d, want 2", len(critical))
	}

	recent, err := store.List(ctx, ListFilter{Since: epoch.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("since = %d, want 2", len(recent))
	}

	page, err := store.List(ctx, ListFilter{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 || page[0].Severity != SeverityCritical || page[1].Severity != SeverityWarning {
		t.Errorf("page = %+v", page)
	}

	skipped, err := store.List(ctx, ListFilter{Offset: 3})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(skipped) != 1 || skipped[0].Severity != SeverityInfo {
		t.Errorf("offset only = %+v", skipped)
	}
}

func TestStoreDismissAndPurge(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testNotification("n-1", SeverityInfo, epoch, time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Dismiss(ctx, "n-1", epoch.Add(time.Second)); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if active, _ := store.Active(ctx, epoch.Add(2*time.Second)); len(active) != 0 {
		t.Errorf("dismissed notification still active: %+v", active)
	}
	if err := store.Dismiss(ctx, "missing", epoch); !errors.Is(err, ErrNotFound) {
		t.Errorf("Dismiss missing err = %v", err)
	}

	removed, err := store.Purge(ctx, epoch.Add(time.Minute))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
}

func newTestNotifier(store *Store, opts Options) *Notifier {
	n := NewNotifier(store, opts)
	n.now = func() time.Time { return epoch }
	return n
}

func TestNotifierSuccessAndError(t *testing.T) {
	store := setupTestStore(t)
	notifier := newTestNotifier(store, Options{})
	ctx := context.Background()

	ok := notifier.Success(ctx, "copy", "")
	if ok.Message != "copy succeeded" || ok.Severity != SeverityInfo {
		t.Errorf("success = %+v", ok)
	}
	if ok.ExpiresAt.Sub(ok.CreatedAt) != 3*time.Second {
		t.Errorf("success ttl = %v, want 3s", ok.ExpiresAt.Sub(ok.CreatedAt))
	}

	fail := notifier.Error(ctx, "download SVG", errors.New("status 503"))
	if fail.Message != "Failed to download SVG: status 503" {
		t.Errorf("error message = %q", fail.Message)
	}
	if fail.Severity != SeverityCritical || fail.ExpiresAt.Sub(fail.CreatedAt) != 5*time.Second {
		t.Errorf("error = %+v", fail)
	}

	warn := notifier.Warn(ctx, "load styles", "using fallback stylesheet")
	if warn.Severity != SeverityWarning {
		t.Errorf("warn severity = %q", warn.Severity)
	}

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("persisted %d notifications, want 3", len(all))
	}
}

func TestNotifierWithoutStore(t *testing.T) {
	notifier := newTestNotifier(nil, Options{SuccessTTL: time.Second})
	n := notifier.Success(context.Background(), "generate", "Sitemap generated")
	if n.ID != "" {
		t.Errorf("expected no id without a store, got %q", n.ID)
	}
	if n.ExpiresAt.Sub(n.CreatedAt) != time.Second {
		t.Errorf("ttl = %v, want 1s", n.ExpiresAt.Sub(n.CreatedAt))
	}
}

func TestNotifierWebhook(t *testing.T) {
	var received [][]byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		received = append(received, buf.Bytes())
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := newTestNotifier(setupTestStore(t), Options{WebhookURL: server.URL})
	ctx := context.Background()

	notifier.Success(ctx, "copy", "")
	notifier.Error(ctx, "copy", errors.New("denied"))

	if len(received) != 1 {
		t.Fatalf("webhook called %d times, want 1 (critical only)", len(received))
	}
	var got Notification
	if err := json.Unmarshal(received[0], &got); err != nil {
		t.Fatalf("unmarshalling webhook payload: %v", err)
	}
	if got.Severity != SeverityCritical || !strings.HasPrefix(got.Message, "Failed to copy") {
		t.Errorf("webhook payload = %+v", got)
	}
}

func TestSeverityMatches(t *testing.T) {
	tests := []struct {
		actual, filter Severity
		want           bool
	}{
		{SeverityInfo, SeverityInfo, true},
		{SeverityInfo, SeverityWarning, false},
		{SeverityCritical, SeverityWarning, true},
		{SeverityWarning, SeverityCritical, false},
	}
	for _, tt := range tests {
		if got := severityMatches(tt.actual, tt.filter); got != tt.want {
			t.Errorf("severityMatches(%s, %s) = %v, want %v", tt.actual, tt.filter, got, tt.want)
		}
	}
}

func TestHTTPHandlers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	now := time.Now()
	if _, err := store.Create(ctx, testNotification("api-1", SeverityInfo, now, time.Hour)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, testNotification("old", SeverityInfo, now.Add(-time.Hour), time.Second)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list := func(t *testing.T, url string) []Notification {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var got []Notification
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		return got
	}

	t.Run("GET /api/notifications returns active only", func(t *testing.T) {
		got := list(t, "/api/notifications")
		if len(got) != 1 || got[0].ID != "api-1" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("GET /api/notifications?all=true", func(t *testing.T) {
		if got := list(t, "/api/notifications?all=true"); len(got) != 2 {
			t.Errorf("expected 2 notifications, got %d", len(got))
		}
	})

	t.Run("GET /api/notifications/{id}", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/api-1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var got Notification
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if got.ID != "api-1" {
			t.Errorf("ID = %q, want api-1", got.ID)
		}
	})

	t.Run("GET /api/notifications/{id} not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/nonexistent", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("DELETE /api/notifications/{id}", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/notifications/api-1", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := list(t, "/api/notifications"); len(got) != 0 {
			t.Errorf("expected no active notifications after dismiss, got %d", len(got))
		}
	})
}
