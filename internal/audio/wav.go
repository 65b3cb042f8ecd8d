package audio

import (
	"io"
	"os"
	"time"

	"github.com/cryptix/wav"
	"github.com/pkg/errors"
)

const bytesPerSample = 2

// WAVInfo describes an encoded WAV file.
type WAVInfo struct {
	Path       string
	Size       int64
	SampleRate int
	Channels   int
	Samples    int
	Duration   time.Duration
}

// WriteWAV concatenates 16-bit little-endian PCM chunks, in order, into one
// WAV file at path. A trailing odd byte is dropped.
func WriteWAV(path string, chunks [][]byte, sampleRate, channels int) (info WAVInfo, err error) {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if channels <= 0 {
		channels = 1
	}

	var f *os.File
	if f, err = os.Create(path); err != nil {
		err = errors.Wrapf(err, "audio: creating %s failed", path)
		return
	}

	wavFile := wav.File{
		Channels:        uint16(channels),
		SampleRate:      uint32(sampleRate),
		SignificantBits: 16,
	}

	var w *wav.Writer
	if w, err = wavFile.NewWriter(f); err != nil {
		_ = f.Close()
		err = errors.Wrap(err, "audio: creating wav writer failed")
		return
	}

	// Chunk boundaries need not align with samples.
	var carry []byte
	samples := 0
	for _, chunk := range chunks {
		data := chunk
		if len(carry) > 0 {
			data = append(carry, chunk...)
			carry = nil
		}
		whole := len(data) - len(data)%bytesPerSample
		for i := 0; i < whole; i += bytesPerSample {
			if err = w.WriteSample(data[i : i+bytesPerSample]); err != nil {
				_ = w.Close()
				err = errors.Wrap(err, "audio: writing wav sample failed")
				return
			}
			samples++
		}
		if whole < len(data) {
			carry = append([]byte(nil), data[whole:]...)
		}
	}

	if err = w.Close(); err != nil {
		err = errors.Wrap(err, "audio: closing wav writer failed")
		return
	}
	if closeErr := f.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
		err = errors.Wrapf(closeErr, "audio: closing %s failed", path)
		return
	}

	var fi os.FileInfo
	if fi, err = os.Stat(path); err != nil {
		err = errors.Wrapf(err, "audio: stating %s failed", path)
		return
	}

	info = WAVInfo{
		Path:       path,
		Size:       fi.Size(),
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
		Duration:   samplesDuration(samples, sampleRate, channels),
	}
	return
}

// ReadWAVInfo inspects an existing WAV file.
func ReadWAVInfo(path string) (info WAVInfo, err error) {
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = errors.Wrapf(err, "audio: opening %s failed", path)
		return
	}
	defer f.Close()

	var fi os.FileInfo
	if fi, err = f.Stat(); err != nil {
		err = errors.Wrapf(err, "audio: stating %s failed", path)
		return
	}

	var r *wav.Reader
	if r, err = wav.NewReader(f, fi.Size()); err != nil {
		err = errors.Wrap(err, "audio: creating wav reader failed")
		return
	}

	samples := 0
	for {
		if _, err = r.ReadSample(); err != nil {
			if err != io.EOF {
				err = errors.Wrap(err, "audio: reading wav sample failed")
				return
			}
			err = nil
			break
		}
		samples++
	}

	file := r.GetFile()
	info = WAVInfo{
		Path:       path,
		Size:       fi.Size(),
		SampleRate: int(file.SampleRate),
		Channels:   int(file.Channels),
		Samples:    samples,
		Duration:   samplesDuration(samples, int(file.SampleRate), int(file.Channels)),
	}
	return
}

func samplesDuration(samples, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	frames := samples / channels
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
