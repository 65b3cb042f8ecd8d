package session

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voicecoach/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := openStore(t)

	if _, ok, err := store.LoadResult(); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	pitch := 220.0
	in := &domain.AnalysisResult{
		WavKey:    "k1",
		ScaleType: "C",
		Segments:  []domain.Segment{{SegmentIndex: 1, StartTimeSec: 0.5, EndTimeSec: 1, VocalCord: "L_L", Pitch: &pitch}},
	}
	if err := store.SaveResult(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, ok, err := store.LoadResult()
	if err != nil || !ok {
		t.Fatalf("load failed: ok=%v err=%v", ok, err)
	}
	if out.WavKey != "k1" || len(out.Segments) != 1 || out.Segments[0].Pitch == nil || *out.Segments[0].Pitch != pitch {
		t.Fatalf("unexpected result: %+v", out)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, ok, _ := store.LoadResult(); ok {
		t.Fatalf("expected result to be cleared")
	}
}

func TestStoreSaveNilClears(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	if err := store.SaveResult(&domain.AnalysisResult{WavKey: "k"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveResult(nil); err != nil {
		t.Fatalf("save nil failed: %v", err)
	}
	if _, ok, _ := store.LoadResult(); ok {
		t.Fatalf("expected nil save to clear")
	}
}

func TestStoreSubscribeNotifies(t *testing.T) {
	t.Parallel()

	store := openStore(t)
	ch, cancel := store.Subscribe()

	if err := store.SaveResult(&domain.AnalysisResult{WavKey: "a"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.SaveResult(&domain.AnalysisResult{WavKey: "b"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("expected change notification")
	}

	cancel()
	cancel()
	if _, open := <-ch; open {
		t.Fatalf("expected channel closed after unsubscribe")
	}
	if err := store.SaveResult(&domain.AnalysisResult{WavKey: "c"}); err != nil {
		t.Fatalf("save after unsubscribe failed: %v", err)
	}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(zerolog.Nop())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
