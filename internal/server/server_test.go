package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dimitrmo/cygaz/internal/cache"
	"github.com/dimitrmo/cygaz/internal/metrics"
	"github.com/dimitrmo/cygaz/internal/petrol"
	"github.com/dimitrmo/cygaz/internal/refresher"
	"github.com/dimitrmo/cygaz/internal/version"
)

// fetchFunc adapts a function to the fetcher interface for tests.
type fetchFunc func(ctx context.Context, t petrol.Type) ([]petrol.Station, error)

func (f fetchFunc) Fetch(ctx context.Context, t petrol.Type) ([]petrol.Station, error) {
	return f(ctx, t)
}

type fixture struct {
	store       *cache.Store
	coordinator *refresher.Coordinator
	srv         *httptest.Server
}

func newFixture(t *testing.T, fetch fetchFunc) *fixture {
	t.Helper()

	store := cache.NewStore()
	coordinator := refresher.New(fetch, store, time.Second, metrics.New(), zerolog.Nop())
	s := New(Options{Host: "127.0.0.1", Port: 0}, store, coordinator, metrics.New(), zerolog.Nop())

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &fixture{store: store, coordinator: coordinator, srv: srv}
}

func (f *fixture) do(t *testing.T, method, path string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	body, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, body
}

func TestVersionEndpoint(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return nil, errors.New("unused")
	})

	res, body := f.do(t, http.MethodGet, "/version")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if string(body) != version.Version {
		t.Fatalf("expected version %q, got %q", version.Version, body)
	}
}

func TestColdCacheReturnsAccepted(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return nil, errors.New("still cold")
	})

	res, body := f.do(t, http.MethodGet, "/prices/4")
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("cold cache should answer 202, got %d", res.StatusCode)
	}
	if res.Header.Get("Retry-After") == "" {
		t.Fatal("cold cache response should carry Retry-After")
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["status"] != "warming_up" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestWarmCacheServesSnapshot(t *testing.T) {
	price, _ := petrol.ParsePrice("1.000")
	f := newFixture(t, func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return []petrol.Station{{
			Brand:    "Brand_1",
			Company:  "Company_1",
			Area:     "Larnaca",
			Price:    price,
			District: petrol.Larnaca,
		}}, nil
	})

	if err := f.coordinator.Refresh(context.Background(), petrol.DieselAuto); err != nil {
		t.Fatalf("warm-up refresh failed: %v", err)
	}

	res, body := f.do(t, http.MethodGet, "/prices/4")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.StatusCode, body)
	}

	var list struct {
		UpdatedAt     int64  `json:"updated_at"`
		UpdatedAtStr  string `json:"updated_at_str"`
		PetroleumType uint32 `json:"petroleum_type"`
		Stations      []struct {
			Brand string  `json:"brand"`
			Price float64 `json:"price"`
		} `json:"stations"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if list.PetroleumType != 4 {
		t.Fatalf("expected petroleum type 4, got %d", list.PetroleumType)
	}
	if len(list.Stations) != 1 || list.Stations[0].Brand != "Brand_1" {
		t.Fatalf("unexpected stations: %+v", list.Stations)
	}
	if list.Stations[0].Price != 1.0 {
		t.Fatalf("expected price 1.000, got %v", list.Stations[0].Price)
	}
	if list.UpdatedAt == 0 || list.UpdatedAtStr == "" {
		t.Fatalf("timestamps missing: %+v", list)
	}
}

func TestRepeatedReadsAreIdentical(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return []petrol.Station{{Brand: "stable"}}, nil
	})

	if err := f.coordinator.Refresh(context.Background(), petrol.Unlead95); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	_, first := f.do(t, http.MethodGet, "/prices/1")
	_, second := f.do(t, http.MethodGet, "/prices/1")
	if string(first) != string(second) {
		t.Fatalf("reads without a refresh should be identical:\n%s\n%s", first, second)
	}
}

func TestForceRefreshOutcomes(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		<-release
		return nil, nil
	})

	res, body := f.do(t, http.MethodPatch, "/prices/1/refresh")
	if res.StatusCode != http.StatusAccepted {
		t.Fatalf("first refresh should be accepted (202), got %d: %s", res.StatusCode, body)
	}
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)
	if payload["status"] != "accepted" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	res, body = f.do(t, http.MethodPatch, "/prices/1/refresh")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second refresh should answer 200, got %d: %s", res.StatusCode, body)
	}
	_ = json.Unmarshal(body, &payload)
	if payload["status"] != "already_running" {
		t.Fatalf("unexpected payload: %v", payload)
	}

	close(release)
}

func TestFailedRefreshKeepsServingStaleSnapshot(t *testing.T) {
	fail := false
	f := newFixture(t, func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		if fail {
			return nil, errors.New("upstream broke")
		}
		return []petrol.Station{{Brand: "stale-but-good"}}, nil
	})

	if err := f.coordinator.Refresh(context.Background(), petrol.Unlead98); err != nil {
		t.Fatalf("initial refresh failed: %v", err)
	}
	_, before := f.do(t, http.MethodGet, "/prices/2")

	fail = true
	if err := f.coordinator.Refresh(context.Background(), petrol.Unlead98); err == nil {
		t.Fatal("second refresh should fail")
	}

	res, after := f.do(t, http.MethodGet, "/prices/2")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stale snapshot should still serve 200, got %d", res.StatusCode)
	}
	if string(before) != string(after) {
		t.Fatalf("failed refresh changed the served snapshot:\n%s\n%s", before, after)
	}
}

func TestInvalidPetroleumType(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return nil, errors.New("unused")
	})

	res, _ := f.do(t, http.MethodGet, "/prices/abc")
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-numeric type should answer 400, got %d", res.StatusCode)
	}

	res, _ = f.do(t, http.MethodGet, "/prices/9")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("out-of-range type should answer 404, got %d", res.StatusCode)
	}

	res, _ = f.do(t, http.MethodPatch, "/prices/0/refresh")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("out-of-range refresh should answer 404, got %d", res.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, typ petrol.Type) ([]petrol.Station, error) {
		return nil, errors.New("unused")
	})

	res, body := f.do(t, http.MethodGet, "/healthz")
	if res.StatusCode != http.StatusOK || string(body) != "ok\n" {
		t.Fatalf("unexpected healthz response: %d %q", res.StatusCode, body)
	}
}
