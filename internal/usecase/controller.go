package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicecoach/internal/domain"
	"voicecoach/internal/ports"
	"voicecoach/internal/render"
)

var (
	ErrBusy          = errors.New("another operation is in progress")
	ErrNoScale       = errors.New("no scale selected")
	ErrNoRecording   = errors.New("no recording to analyze")
	ErrNoPitchGroup  = errors.New("pitch group not found")
	ErrNotRecording  = errors.New("not recording")
	ErrCaptureAbsent = fmt.Errorf("audio capture unavailable: %w", domain.ErrDeviceUnavailable)
)

// Deps are the collaborators the controller drives.
type Deps struct {
	Recorder ports.Recorder
	Analysis ports.AnalysisService
	Store    ports.ResultStore
	Player   ports.Player
	Events   ports.EventSink

	CaptureAvailable bool
}

// SessionController owns the session state and orchestrates
// scale selection, recording, analysis and playback.
type SessionController struct {
	recorder  ports.Recorder
	analysis  ports.AnalysisService
	player    ports.Player
	events    ports.EventSink
	finalizer resultFinalizer
	log       zerolog.Logger

	captureAvailable bool

	mu      sync.Mutex
	session sessionState
}

func NewSessionController(deps Deps, log zerolog.Logger) *SessionController {
	log = log.With().Str("component", "controller").Logger()
	return &SessionController{
		recorder:         deps.Recorder,
		analysis:         deps.Analysis,
		player:           deps.Player,
		events:           deps.Events,
		finalizer:        newResultFinalizer(deps.Store, deps.Events, log),
		log:              log,
		captureAvailable: deps.CaptureAvailable,
		session:          sessionState{state: domain.SessionStateIdle, message: textReady},
	}
}

// SelectScale sets the reference scale for the next recording.
func (c *SessionController) SelectScale(scale domain.Scale) domain.Status {
	c.mu.Lock()
	c.session.scale = &scale
	if c.session.state == domain.SessionStateIdle {
		c.session.message = scale.Name
	}
	state := c.session.state
	c.mu.Unlock()

	c.log.Info().Str("scale", scale.Name).Msg("scale selected")
	c.events.SessionStateChanged(state, domain.SessionReasonScaleSelected)
	return c.Status()
}

// StartRecording opens the microphone. A previous recording is discarded.
func (c *SessionController) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.session.busy || c.recorder.IsRecording():
		c.mu.Unlock()
		return ErrBusy
	case c.session.scale == nil:
		c.mu.Unlock()
		return ErrNoScale
	case !c.captureAvailable:
		c.mu.Unlock()
		return ErrCaptureAbsent
	}
	restart := c.session.recording != nil
	c.session.busy = true
	c.session.set(domain.SessionStateRequesting, c.session.message)
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateRequesting, domain.SessionReasonRequestingMic)

	err := c.recorder.Start(ctx)

	c.mu.Lock()
	c.session.busy = false
	if err != nil {
		c.session.set(domain.SessionStateIdle, textMicError)
		c.mu.Unlock()

		c.log.Error().Err(err).Msg("microphone unavailable")
		c.events.SessionError(captureErrorCode(err), err.Error())
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonMicUnavailable)
		return err
	}
	if c.session.state != domain.SessionStateRequesting {
		// capture already died and CaptureInterrupted adopted the take
		c.mu.Unlock()
		return nil
	}
	c.session.recording = nil
	c.session.set(domain.SessionStateRecording, textRecording)
	c.mu.Unlock()

	reason := domain.SessionReasonRecordingStarted
	if restart {
		reason = domain.SessionReasonRecordingRestarted
	}
	c.events.SessionStateChanged(domain.SessionStateRecording, reason)
	return nil
}

// StopRecording releases the microphone and finalises the recording.
func (c *SessionController) StopRecording(ctx context.Context) (domain.Recording, error) {
	if !c.recorder.IsRecording() {
		return domain.Recording{}, ErrNotRecording
	}

	rec, err := c.recorder.Stop(ctx)
	if err != nil {
		c.mu.Lock()
		c.session.set(domain.SessionStateFailed, failureText(err))
		c.mu.Unlock()

		c.log.Error().Err(err).Msg("failed to finalise recording")
		c.events.SessionError(domain.ErrorCodeAudioStop, err.Error())
		c.events.SessionStateChanged(domain.SessionStateFailed, domain.SessionReasonRecordingStopped)
		return domain.Recording{}, err
	}

	c.mu.Lock()
	c.session.recording = &rec
	c.session.set(domain.SessionStateStopped, textRecorded)
	c.mu.Unlock()

	c.log.Info().
		Str("session", rec.SessionID).
		Int64("bytes", rec.Size).
		Dur("duration", rec.Duration).
		Msg("recording finalised")
	c.events.SessionStateChanged(domain.SessionStateStopped, domain.SessionReasonRecordingStopped)
	return rec, nil
}

// CaptureInterrupted adopts the partial take of a capture that ended before
// StopRecording. rec is zero when nothing could be written.
func (c *SessionController) CaptureInterrupted(rec domain.Recording, err error) {
	c.mu.Lock()
	if rec.Path != "" {
		c.session.recording = &rec
		c.session.set(domain.SessionStateStopped, textInterrupted)
	} else {
		c.session.recording = nil
		c.session.set(domain.SessionStateFailed, failureText(err))
	}
	state := c.session.state
	c.mu.Unlock()

	c.log.Warn().Err(err).Str("session", rec.SessionID).Msg("recording interrupted")
	c.events.SessionError(domain.ErrorCodeAudioRead, err.Error())
	c.events.SessionStateChanged(state, domain.SessionReasonCaptureInterrupted)
}

// Analyze uploads the current recording. It refuses to run while another
// operation is in flight.
func (c *SessionController) Analyze(ctx context.Context) (render.Plan, error) {
	c.mu.Lock()
	if c.session.busy || c.recorder.IsRecording() {
		c.mu.Unlock()
		return render.Plan{}, ErrBusy
	}
	if c.session.recording == nil {
		c.mu.Unlock()
		return render.Plan{}, ErrNoRecording
	}
	rec := *c.session.recording
	c.session.busy = true
	c.session.set(domain.SessionStateUploading, textAnalyzing)
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateUploading, domain.SessionReasonAnalyzing)

	started := time.Now()
	result, err := c.analysis.Upload(ctx, rec)
	if err != nil {
		c.mu.Lock()
		c.session.busy = false
		c.session.set(domain.SessionStateFailed, failureText(err))
		c.mu.Unlock()

		c.log.Error().Err(err).Str("session", rec.SessionID).Msg("analysis failed")
		c.events.SessionError(domain.ErrorCodeUpload, err.Error())
		c.events.SessionStateChanged(domain.SessionStateFailed, domain.SessionReasonAnalysisFailed)
		return render.Plan{}, err
	}

	c.mu.Lock()
	c.session.busy = false
	c.session.result = result
	c.session.set(domain.SessionStateAnalysisReady, textAnalyzed)
	c.mu.Unlock()

	plan := c.finalizer.Finalize(result)
	c.log.Info().
		Str("wavKey", result.WavKey).
		Dur("elapsed", time.Since(started)).
		Msg("analysis ready")
	c.events.AnalysisReady(plan)
	c.events.SessionStateChanged(domain.SessionStateAnalysisReady, domain.SessionReasonAnalysisComplete)
	return plan, nil
}

// Restore adopts a result left in the session store, if any.
func (c *SessionController) Restore(store ports.ResultStore) (render.Plan, bool) {
	if store == nil {
		return render.Plan{}, false
	}
	result, ok, err := store.LoadResult()
	if err != nil {
		c.log.Warn().Err(err).Msg("stored result unreadable")
		return render.Plan{}, false
	}
	if !ok {
		return render.Plan{}, false
	}
	c.mu.Lock()
	c.session.result = result
	c.mu.Unlock()
	return render.Build(result), true
}

// Result returns the analysis held by the running session.
func (c *SessionController) Result() *domain.AnalysisResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.result
}

// Plan renders the live session result.
func (c *SessionController) Plan() render.Plan {
	plan, _ := render.Render(render.LiveSource(c.Result))
	return plan
}

// PlayPitchGroup plays the recorded audio over the i-th pitch group's range.
func (c *SessionController) PlayPitchGroup(i int) error {
	c.mu.Lock()
	result := c.session.result
	rec := c.session.recording
	c.mu.Unlock()

	if result == nil || i < 0 || i >= len(result.PitchGroups) {
		return ErrNoPitchGroup
	}
	if rec == nil {
		return ErrNoRecording
	}

	group := result.PitchGroups[i]
	start := secondsToDuration(group.StartTimeSec)
	end := secondsToDuration(group.EndTimeSec)
	if err := c.player.PlayRange(rec.Path, start, end); err != nil {
		c.log.Error().Err(err).Int("group", i).Msg("playback failed")
		c.events.SessionError(domain.ErrorCodePlayback, err.Error())
		return err
	}
	return nil
}

// SeekPlayback moves the active playback to pos within the recording.
// Seeking past the playing range ends playback.
func (c *SessionController) SeekPlayback(pos time.Duration) error {
	return c.player.Seek(pos)
}

// StopPlayback halts any active playback.
func (c *SessionController) StopPlayback() {
	c.player.Stop()
}

// Status returns the current backend status.
func (c *SessionController) Status() domain.Status {
	active := c.recorder.IsRecording()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.status(c.captureAvailable, active)
}

func captureErrorCode(err error) domain.ErrorCode {
	if errors.Is(err, domain.ErrPermissionDenied) {
		return domain.ErrorCodePermission
	}
	return domain.ErrorCodeDevice
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
