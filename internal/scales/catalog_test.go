package scales

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"voicecoach/internal/domain"
)

func TestLoadEmptyListFallsBack(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	catalog := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop()).Load(context.Background())
	if !catalog.Fallback || catalog.Warning == "" {
		t.Fatalf("expected fallback with warning, got %+v", catalog)
	}
	if len(catalog.Scales) != 7 {
		t.Fatalf("expected 7 fallback scales, got %d", len(catalog.Scales))
	}
	for i, letter := range []string{"c", "d", "e", "f", "g", "a", "b"} {
		want := "scales/" + letter + "_scale.wav"
		if catalog.Scales[i].Path != want {
			t.Fatalf("scale %d: expected %q, got %q", i, want, catalog.Scales[i].Path)
		}
	}
}

func TestLoadTransportErrorFallsBack(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	catalog := NewClient(Config{BaseURL: url}, zerolog.Nop()).Load(context.Background())
	if !catalog.Fallback || len(catalog.Scales) != 7 {
		t.Fatalf("expected fallback, got %+v", catalog)
	}
}

func TestLoadBadStatusFallsBack(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	catalog := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop()).Load(context.Background())
	if !catalog.Fallback {
		t.Fatalf("expected fallback on 500")
	}
}

func TestLoadServerList(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scales" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`[{"name":"c_scale","path":"scales/c_scale.wav"}]`))
	}))
	defer srv.Close()

	catalog := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop()).Load(context.Background())
	if catalog.Fallback || catalog.Warning != "" || len(catalog.Scales) != 1 {
		t.Fatalf("unexpected catalog: %+v", catalog)
	}
	if s, ok := catalog.Find("c_scale"); !ok || s.Path != "scales/c_scale.wav" {
		t.Fatalf("expected to find scale, got %+v %v", s, ok)
	}
	if _, ok := catalog.Find("missing"); ok {
		t.Fatalf("unexpected match")
	}
}

func TestAssetURLAndFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/static/scales/c_scale.wav" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())
	scale := domain.Scale{Name: "C", Path: "scales/c_scale.wav"}
	if got := client.AssetURL(scale); got != srv.URL+"/static/scales/c_scale.wav" {
		t.Fatalf("unexpected asset url: %s", got)
	}

	data, err := client.Fetch(context.Background(), scale)
	if err != nil || string(data) != "RIFF" {
		t.Fatalf("unexpected fetch: %q %v", data, err)
	}

	if _, err := client.Fetch(context.Background(), domain.Scale{Name: "X", Path: "scales/x.wav"}); err == nil {
		t.Fatalf("expected 404 error")
	}
}
