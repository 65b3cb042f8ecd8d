package playback

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"github.com/rs/zerolog"
)

// Output sends a stream to an audio device.
type Output interface {
	Play(s beep.Streamer, format beep.Format) error
}

// Player plays one bounded range at a time; starting a new playback ends
// the previous one.
type Player struct {
	out Output
	log zerolog.Logger

	mu     sync.Mutex
	active *Playback
}

func NewPlayer(out Output, log zerolog.Logger) *Player {
	return &Player{out: out, log: log.With().Str("component", "playback").Logger()}
}

// PlayRange plays the WAV file at path from start until end. A range with
// end <= start is ignored.
func (p *Player) PlayRange(path string, start, end time.Duration) error {
	if end <= start {
		return nil
	}
	fd, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	src, format, err := wav.Decode(fd)
	if err != nil {
		_ = fd.Close()
		return fmt.Errorf("decode %s: %w", path, err)
	}
	_, err = p.Start(src, src, format, start, end)
	return err
}

// PlayClip plays a whole in-memory WAV clip.
func (p *Player) PlayClip(data []byte) error {
	src, format, err := wav.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode clip: %w", err)
	}
	_, err = p.Start(src, src, format, 0, format.SampleRate.D(src.Len()))
	return err
}

// Start plays src between start and end and returns the playback handle.
// closer, when non-nil, is closed once playback ends.
func (p *Player) Start(src beep.StreamSeeker, closer io.Closer, format beep.Format, start, end time.Duration) (*Playback, error) {
	startN := clamp(format.SampleRate.N(start), 0, src.Len())
	endN := clamp(format.SampleRate.N(end), 0, src.Len())
	if endN <= startN {
		closeQuietly(closer)
		return nil, nil
	}
	if err := src.Seek(startN); err != nil {
		closeQuietly(closer)
		return nil, fmt.Errorf("seek: %w", err)
	}

	pb := &Playback{
		src:    src,
		closer: closer,
		format: format,
		end:    endN,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	previous := p.active
	p.active = pb
	p.mu.Unlock()
	if previous != nil {
		previous.Stop()
	}

	if err := p.out.Play(pb, format); err != nil {
		pb.Stop()
		return nil, fmt.Errorf("play: %w", err)
	}
	p.log.Debug().Dur("start", start).Dur("end", end).Msg("playback started")
	return pb, nil
}

// Seek moves the active playback to an absolute position in the clip.
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()
	if active == nil {
		return nil
	}
	return active.Seek(pos)
}

// Active returns the current playback, if any.
func (p *Player) Active() *Playback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.active = nil
	p.mu.Unlock()
	if active != nil {
		active.Stop()
	}
}

// Playback streams src until its position reaches end. The position is
// checked on every buffer, so seeking past end stops it too.
type Playback struct {
	mu       sync.Mutex
	src      beep.StreamSeeker
	closer   io.Closer
	format   beep.Format
	end      int
	finished bool

	done chan struct{}
}

func (b *Playback) Stream(samples [][2]float64) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return 0, false
	}
	remaining := b.end - b.src.Position()
	if remaining <= 0 {
		b.finishLocked()
		return 0, false
	}
	if len(samples) > remaining {
		samples = samples[:remaining]
	}
	n, ok := b.src.Stream(samples)
	if !ok {
		b.finishLocked()
		return n, n > 0
	}
	return n, true
}

func (b *Playback) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.src.Err()
}

// Seek moves to an absolute position in the clip.
func (b *Playback) Seek(pos time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return nil
	}
	n := clamp(b.format.SampleRate.N(pos), 0, b.src.Len())
	return b.src.Seek(n)
}

// Position is the current offset in the clip.
func (b *Playback) Position() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.format.SampleRate.D(b.src.Position())
}

// Done is closed when playback ends for any reason.
func (b *Playback) Done() <-chan struct{} { return b.done }

func (b *Playback) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finishLocked()
}

func (b *Playback) finishLocked() {
	if b.finished {
		return
	}
	b.finished = true
	closeQuietly(b.closer)
	close(b.done)
}

// SpeakerOutput plays through the system speaker, resampling to one fixed
// device rate.
type SpeakerOutput struct {
	rate beep.SampleRate

	once    sync.Once
	initErr error
}

func NewSpeakerOutput(rate int) *SpeakerOutput {
	if rate <= 0 {
		rate = 44100
	}
	return &SpeakerOutput{rate: beep.SampleRate(rate)}
}

func (o *SpeakerOutput) Play(s beep.Streamer, format beep.Format) error {
	o.once.Do(func() {
		o.initErr = speaker.Init(o.rate, o.rate.N(100*time.Millisecond))
	})
	if o.initErr != nil {
		return o.initErr
	}
	if format.SampleRate != o.rate {
		s = beep.Resample(4, format.SampleRate, o.rate, s)
	}
	speaker.Play(s)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
