package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "appwatch/pkg/logx"
)

const lookupBody = `{
  "resultCount": 1,
  "results": [{
    "trackName": "YouTube",
    "artistName": "Google LLC",
    "version": "19.05.2",
    "currentVersionReleaseDate": "2025-02-01T18:30:00Z",
    "trackViewUrl": "https://apps.apple.com/us/app/youtube/id544007664",
    "releaseNotes": "Bug fixes and performance improvements."
  }]
}`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL}, logx.Nop())
}

func TestFetch(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "544007664" {
			t.Errorf("id param = %q", got)
		}
		if got := r.URL.Query().Get("country"); got != "us" {
			t.Errorf("country param = %q", got)
		}
		fmt.Fprint(w, lookupBody)
	})

	info, err := c.Fetch(context.Background(), "544007664")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if info.Name != "YouTube" || info.Developer != "Google LLC" || info.Version != "19.05.2" {
		t.Fatalf("info = %+v", info)
	}
	want := time.Date(2025, 2, 1, 18, 30, 0, 0, time.UTC)
	if !info.Updated.Equal(want) {
		t.Fatalf("Updated = %v, want %v", info.Updated, want)
	}
	if info.ReleaseNotes == "" || info.URL == "" {
		t.Fatalf("info = %+v", info)
	}
}

func TestFetchNotFound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultCount":0,"results":[]}`)
	})
	_, err := c.Fetch(context.Background(), "999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFetchServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	if _, err := c.Fetch(context.Background(), "1"); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestFetchMalformedJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultCount":`)
	})
	if _, err := c.Fetch(context.Background(), "1"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFetchToleratesBadReleaseDate(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultCount":1,"results":[{"trackName":"X","artistName":"Y","version":"1.0","currentVersionReleaseDate":"not-a-date"}]}`)
	})
	info, err := c.Fetch(context.Background(), "1")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !info.Updated.IsZero() {
		t.Fatalf("Updated = %v, want zero", info.Updated)
	}
}

func TestFetchEmptyID(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:0"}, logx.Nop())
	if _, err := c.Fetch(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty id")
	}
}
