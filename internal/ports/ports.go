package ports

import (
	"context"
	"io"
	"time"

	"voicecoach/internal/domain"
	"voicecoach/internal/render"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture device handle.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture opens microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Recorder is the capture state machine the controller drives.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (domain.Recording, error)
	IsRecording() bool
}

// AnalysisService uploads a recording and returns the server analysis.
type AnalysisService interface {
	Upload(ctx context.Context, rec domain.Recording) (*domain.AnalysisResult, error)
}

// ResultStore keeps the latest analysis for the restored feedback view.
type ResultStore interface {
	SaveResult(result *domain.AnalysisResult) error
	LoadResult() (*domain.AnalysisResult, bool, error)
}

// Player plays bounded ranges of the recorded audio.
type Player interface {
	PlayRange(path string, start, end time.Duration) error
	Seek(pos time.Duration) error
	Stop()
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	AnalysisReady(plan render.Plan)
	SessionError(code domain.ErrorCode, detail string)
}
