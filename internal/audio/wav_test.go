package audio

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWriteWAVConcatenatesChunksAcrossSampleBoundaries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rec.wav")
	// 5 samples split unevenly across chunks.
	chunks := [][]byte{{0x01}, {0x00, 0x02, 0x00}, {}, {0x03, 0x00, 0x04, 0x00, 0x05, 0x00}}

	info, err := WriteWAV(path, chunks, 8000, 1)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if info.Samples != 5 {
		t.Fatalf("expected 5 samples, got %d", info.Samples)
	}
	if info.Size <= 10 {
		t.Fatalf("expected header plus data, got size %d", info.Size)
	}

	read, err := ReadWAVInfo(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if read.SampleRate != 8000 || read.Channels != 1 {
		t.Fatalf("unexpected format: %+v", read)
	}
	if read.Samples != 5 {
		t.Fatalf("expected 5 samples on read, got %d", read.Samples)
	}
}

func TestWriteWAVDuration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "second.wav")
	pcm := make([]byte, 16000*2)

	info, err := WriteWAV(path, [][]byte{pcm}, 16000, 1)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if info.Duration != time.Second {
		t.Fatalf("expected 1s, got %s", info.Duration)
	}
}

func TestWriteWAVDropsTrailingOddByte(t *testing.T) {
	t.Parallel()

	info, err := WriteWAV(filepath.Join(t.TempDir(), "odd.wav"), [][]byte{{0x01, 0x00, 0x02}}, 0, 0)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if info.Samples != 1 || info.SampleRate != 16000 || info.Channels != 1 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestWriteWAVInvalidPath(t *testing.T) {
	t.Parallel()

	if _, err := WriteWAV(filepath.Join(t.TempDir(), "missing", "x.wav"), nil, 16000, 1); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
