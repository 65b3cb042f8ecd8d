package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voicecoach/internal/audio"
	"voicecoach/internal/domain"
	"voicecoach/internal/ports"
)

var (
	ErrNoActiveSession   = errors.New("no active recording session")
	ErrInvalidTransition = errors.New("recorder is busy")
	// ErrCaptureInterrupted wraps the read error of a capture that ended
	// without being stopped.
	ErrCaptureInterrupted = errors.New("audio capture interrupted")
)

// InterruptFunc receives the partial recording of an interrupted capture.
// rec is zero when the partial take could not be written either.
type InterruptFunc func(rec domain.Recording, err error)

// State is the capture state machine position.
type State string

const (
	StateIdle       State = "idle"
	StateRequesting State = "requesting"
	StateRecording  State = "recording"
	StateStopping   State = "stopping"
	StateStopped    State = "stopped"
)

const wavMIMEType = "audio/wav"

// Config controls capture and where finalised recordings are written.
type Config struct {
	Audio     ports.AudioConfig
	ChunkSize int
	Dir       string
}

// Recorder turns a capture device into one WAV recording per session.
type Recorder struct {
	capture ports.AudioCapture
	cfg     Config
	log     zerolog.Logger

	mu          sync.Mutex
	state       State
	current     *Session
	last        *domain.Recording
	onInterrupt InterruptFunc
}

func New(capture ports.AudioCapture, cfg Config, log zerolog.Logger) *Recorder {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Dir == "" {
		cfg.Dir = filepath.Join(os.TempDir(), "voicecoach")
	}
	return &Recorder{
		capture: capture,
		cfg:     cfg,
		log:     log.With().Str("component", "recorder").Logger(),
		state:   StateIdle,
	}
}

// OnInterrupt registers the callback for captures that end on a read error.
func (r *Recorder) OnInterrupt(fn InterruptFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onInterrupt = fn
}

// Start opens the microphone and begins accumulating chunks. It is valid from
// idle or stopped. The previous recording is discarded once the device opens;
// a failed start leaves it in place.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	switch r.state {
	case StateRequesting, StateRecording, StateStopping:
		state := r.state
		r.mu.Unlock()
		r.log.Warn().Str("state", string(state)).Msg("start ignored while capture is active")
		return ErrInvalidTransition
	}
	restoreState := r.state
	r.state = StateRequesting
	r.mu.Unlock()

	sessionCtx, cancel := context.WithCancel(ctx)
	device, err := r.capture.Start(sessionCtx, r.cfg.Audio)
	if err != nil {
		cancel()
		r.setState(restoreState)
		r.log.Error().Err(err).Msg("microphone access failed")
		return err
	}

	session := newSession(uuid.NewString(), device, cancel)

	r.mu.Lock()
	previous := r.last
	r.last = nil
	r.current = session
	r.state = StateRecording
	r.mu.Unlock()

	if previous != nil {
		r.removeFile(previous.Path)
	}

	go r.run(session)

	r.log.Info().Str("session", session.ID).Msg("recording started")
	return nil
}

// Stop finalises the active capture into exactly one WAV recording. Without
// an active device handle it logs and returns ErrNoActiveSession.
func (r *Recorder) Stop(ctx context.Context) (domain.Recording, error) {
	r.mu.Lock()
	session := r.current
	if session == nil || r.state != StateRecording {
		r.mu.Unlock()
		r.log.Error().Msg("stop requested without an active capture device")
		return domain.Recording{}, ErrNoActiveSession
	}
	r.state = StateStopping
	r.mu.Unlock()

	go r.finalize(session)

	select {
	case <-session.Done():
		return session.Result()
	case <-ctx.Done():
		go r.discard(session)
		return domain.Recording{}, ctx.Err()
	}
}

// IsRecording is true iff a device handle exists and is capturing.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current != nil && r.state == StateRecording
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Last returns the most recent finalised recording.
func (r *Recorder) Last() (domain.Recording, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return domain.Recording{}, false
	}
	return *r.last, true
}

// Close releases the device and removes transient recordings.
func (r *Recorder) Close() error {
	r.mu.Lock()
	session := r.current
	last := r.last
	r.current = nil
	r.last = nil
	r.state = StateIdle
	r.mu.Unlock()

	var err error
	if session != nil {
		err = session.audio.Stop()
		<-session.pumpDone
		session.cancel()
	}
	if last != nil {
		r.removeFile(last.Path)
	}
	return err
}

// run pumps the device and finalises the partial take when capture dies
// before Stop.
func (r *Recorder) run(session *Session) {
	session.pump(r.cfg.ChunkSize, r.log)

	readErr := session.ReadErr()
	if readErr == nil {
		return
	}
	r.mu.Lock()
	if r.current != session || r.state != StateRecording {
		r.mu.Unlock()
		return
	}
	r.state = StateStopping
	notify := r.onInterrupt
	r.mu.Unlock()

	r.log.Warn().Err(readErr).Str("session", session.ID).Msg("capture interrupted, keeping partial recording")
	r.finalize(session)

	rec, err := session.Result()
	if err != nil {
		err = fmt.Errorf("%w: %v: %w", ErrCaptureInterrupted, readErr, err)
	} else {
		err = fmt.Errorf("%w: %v", ErrCaptureInterrupted, readErr)
	}
	if notify != nil {
		notify(rec, err)
	}
}

// discard removes a recording whose Stop caller gave up waiting.
func (r *Recorder) discard(session *Session) {
	<-session.Done()
	rec, err := session.Result()
	if err != nil {
		return
	}
	r.mu.Lock()
	if r.last != nil && r.last.SessionID == rec.SessionID {
		r.last = nil
		r.state = StateIdle
	}
	r.mu.Unlock()
	r.removeFile(rec.Path)
	r.log.Warn().Str("session", rec.SessionID).Msg("abandoned recording discarded")
}

func (r *Recorder) finalize(session *Session) {
	if err := session.audio.Stop(); err != nil {
		r.log.Warn().Err(err).Str("session", session.ID).Msg("failed to stop audio capture cleanly")
	}
	<-session.pumpDone
	session.cancel()

	rec, err := r.encode(session)

	r.mu.Lock()
	if r.current == session {
		r.current = nil
	}
	if err != nil {
		r.state = StateIdle
	} else {
		r.state = StateStopped
		r.last = &rec
	}
	r.mu.Unlock()

	if err != nil {
		r.log.Error().Err(err).Str("session", session.ID).Msg("recording finalisation failed")
	} else {
		r.log.Info().
			Str("session", session.ID).
			Int("chunks", session.ChunkCount()).
			Dur("duration", rec.Duration).
			Msg("recording finalised")
	}
	session.finish(rec, err)
}

func (r *Recorder) encode(session *Session) (domain.Recording, error) {
	if err := os.MkdirAll(r.cfg.Dir, 0o755); err != nil {
		return domain.Recording{}, err
	}
	path := filepath.Join(r.cfg.Dir, "recording-"+session.ID+".wav")
	info, err := audio.WriteWAV(path, session.snapshot(), r.cfg.Audio.SampleRate, r.cfg.Audio.Channels)
	if err != nil {
		return domain.Recording{}, err
	}
	return domain.Recording{
		SessionID:  session.ID,
		Path:       info.Path,
		MIMEType:   wavMIMEType,
		Size:       info.Size,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
		Duration:   info.Duration,
	}, nil
}

func (r *Recorder) setState(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

func (r *Recorder) removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Warn().Err(err).Str("path", path).Msg("failed to remove recording")
	}
}
