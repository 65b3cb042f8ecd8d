package playback

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/rs/zerolog"

	"voicecoach/internal/audio"
)

var testFormat = beep.Format{SampleRate: 1000, NumChannels: 1, Precision: 2}

func TestPlaybackStopsAtEnd(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	player := NewPlayer(out, zerolog.Nop())
	src := newFakeSource(1000)

	pb, err := player.Start(src, nil, testFormat, 100*time.Millisecond, 300*time.Millisecond)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	if got := drain(out.last(), 64); got != 200 {
		t.Fatalf("expected 200 samples, got %d", got)
	}
	if src.Position() != 300 {
		t.Fatalf("expected source to stop at 300, got %d", src.Position())
	}
	assertDone(t, pb)
}

func TestPlaybackSeekPastEndStops(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	player := NewPlayer(out, zerolog.Nop())
	src := newFakeSource(1000)

	pb, err := player.Start(src, nil, testFormat, 0, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stream := out.last()
	buf := make([][2]float64, 64)
	if n, ok := stream.Stream(buf); !ok || n != 64 {
		t.Fatalf("unexpected first buffer: n=%d ok=%v", n, ok)
	}

	if err := player.Seek(800 * time.Millisecond); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	if n, ok := stream.Stream(buf); ok || n != 0 {
		t.Fatalf("expected playback to stop after seeking past end, got n=%d ok=%v", n, ok)
	}
	assertDone(t, pb)
}

func TestPlaybackSeekWithinRangeContinues(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	player := NewPlayer(out, zerolog.Nop())
	src := newFakeSource(1000)

	pb, err := player.Start(src, nil, testFormat, 0, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := pb.Seek(400 * time.Millisecond); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	if pb.Position() != 400*time.Millisecond {
		t.Fatalf("unexpected position: %v", pb.Position())
	}
	if got := drain(out.last(), 64); got != 100 {
		t.Fatalf("expected 100 remaining samples, got %d", got)
	}
}

func TestPlaybackEmptyRangeIsIgnored(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	player := NewPlayer(out, zerolog.Nop())

	if err := player.PlayRange("does-not-matter.wav", time.Second, time.Second); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	pb, err := player.Start(newFakeSource(10), nil, testFormat, 20*time.Millisecond, 50*time.Millisecond)
	if err != nil || pb != nil {
		t.Fatalf("expected range beyond clip to be ignored, got %v %v", pb, err)
	}
	if out.count() != 0 {
		t.Fatalf("expected nothing played")
	}
}

func TestPlaybackNewReplacesPrevious(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{}
	player := NewPlayer(out, zerolog.Nop())
	closer := &fakeCloser{}

	first, err := player.Start(newFakeSource(1000), closer, testFormat, 0, time.Second)
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	second, err := player.Start(newFakeSource(1000), nil, testFormat, 0, time.Second)
	if err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	assertDone(t, first)
	if !closer.closed {
		t.Fatalf("expected previous source to be closed")
	}
	if player.Active() != second {
		t.Fatalf("expected second playback to be active")
	}

	player.Stop()
	assertDone(t, second)
	if player.Active() != nil {
		t.Fatalf("expected no active playback after stop")
	}
}

func TestPlaybackOutputFailure(t *testing.T) {
	t.Parallel()

	out := &fakeOutput{err: errors.New("no device")}
	player := NewPlayer(out, zerolog.Nop())
	closer := &fakeCloser{}

	if _, err := player.Start(newFakeSource(100), closer, testFormat, 0, 50*time.Millisecond); err == nil {
		t.Fatalf("expected output error")
	}
	if !closer.closed {
		t.Fatalf("expected source to be closed on failure")
	}
}

func TestPlayRangeDecodesWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rec.wav")
	pcm := make([]byte, 2*1600)
	if _, err := audio.WriteWAV(path, [][]byte{pcm}, 16000, 1); err != nil {
		t.Fatalf("write wav failed: %v", err)
	}

	out := &fakeOutput{}
	player := NewPlayer(out, zerolog.Nop())
	if err := player.PlayRange(path, 25*time.Millisecond, 75*time.Millisecond); err != nil {
		t.Fatalf("play range failed: %v", err)
	}
	if got := drain(out.last(), 128); got != 800 {
		t.Fatalf("expected 800 samples for 50ms at 16kHz, got %d", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if err := player.PlayClip(data); err != nil {
		t.Fatalf("play clip failed: %v", err)
	}
	if got := drain(out.last(), 256); got != 1600 {
		t.Fatalf("expected whole clip, got %d", got)
	}
}

func TestPlayRangeMissingFile(t *testing.T) {
	t.Parallel()

	player := NewPlayer(&fakeOutput{}, zerolog.Nop())
	if err := player.PlayRange(filepath.Join(t.TempDir(), "gone.wav"), 0, time.Second); err == nil {
		t.Fatalf("expected open error")
	}
}

func drain(s beep.Streamer, size int) int {
	buf := make([][2]float64, size)
	total := 0
	for i := 0; i < 10000; i++ {
		n, ok := s.Stream(buf)
		total += n
		if !ok {
			return total
		}
	}
	return total
}

func assertDone(t *testing.T, pb *Playback) {
	t.Helper()
	select {
	case <-pb.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected playback to be done")
	}
}

type fakeOutput struct {
	mu      sync.Mutex
	streams []beep.Streamer
	err     error
}

func (f *fakeOutput) Play(s beep.Streamer, _ beep.Format) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.streams = append(f.streams, s)
	return nil
}

func (f *fakeOutput) last() beep.Streamer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[len(f.streams)-1]
}

func (f *fakeOutput) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

type fakeSource struct {
	length int
	pos    int
}

func newFakeSource(length int) *fakeSource {
	return &fakeSource{length: length}
}

func (f *fakeSource) Stream(samples [][2]float64) (int, bool) {
	if f.pos >= f.length {
		return 0, false
	}
	n := len(samples)
	if rem := f.length - f.pos; n > rem {
		n = rem
	}
	f.pos += n
	return n, true
}

func (f *fakeSource) Err() error    { return nil }
func (f *fakeSource) Len() int      { return f.length }
func (f *fakeSource) Position() int { return f.pos }

func (f *fakeSource) Seek(p int) error {
	f.pos = p
	return nil
}

type fakeCloser struct{ closed bool }

func (f *fakeCloser) Close() error {
	f.closed = true
	return nil
}
