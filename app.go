package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voicecoach/internal/bootstrap"
	"voicecoach/internal/domain"
	"voicecoach/internal/feedback"
	"voicecoach/internal/render"
	"voicecoach/internal/scales"
	"voicecoach/internal/usecase"
)

const (
	eventSession  = "voicecoach:session"
	eventScales   = "voicecoach:scales"
	eventAnalysis = "voicecoach:analysis"
	eventError    = "voicecoach:error"
)

type emitFunc func(ctx context.Context, name string, data ...interface{})

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	assets fs.FS
	emit   emitFunc

	services bootstrap.Services
	bootErr  error

	mu      sync.Mutex
	catalog scales.Catalog
}

func NewApp(assets fs.FS) *App {
	return &App{assets: assets, emit: runtime.EventsEmit}
}

func (a *App) startup(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)

	services, err := bootstrap.Build(a, bootstrap.Options{
		Feedback: feedback.Config{Assets: a.assets},
	})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}
	a.services = services

	if err := services.Feedback.Start(a.ctx); err != nil {
		services.Logger.Error().Err(err).Msg("feedback server failed to start")
		a.SessionError(domain.ErrorCodeStartup, err.Error())
	}

	a.loadScales(a.ctx)

	if plan, ok := services.Controller.Restore(services.Store); ok {
		a.AnalysisReady(plan)
	}
	if !services.CaptureAvailable {
		a.SessionError(domain.ErrorCodeDevice, "audio recorder command not found")
		a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonMicUnavailable)
		return
	}
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonReady)
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services.Controller != nil {
		if err := a.services.Close(); err != nil {
			a.services.Logger.Error().Err(err).Msg("shutdown")
		}
	}
}

func (a *App) loadScales(ctx context.Context) {
	catalog := a.services.Scales.Load(ctx)
	a.mu.Lock()
	a.catalog = catalog
	a.mu.Unlock()

	if catalog.Fallback {
		a.SessionError(domain.ErrorCodeScales, catalog.Warning)
	}
	a.emitEvent(eventScales, catalog)
}

// GetScales returns the scale list shown to the user.
func (a *App) GetScales() scales.Catalog {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.catalog
}

// SelectScale marks the named scale as the reference for the next recording.
func (a *App) SelectScale(name string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	scale, ok := a.GetScales().Find(name)
	if !ok {
		return domain.Status{}, fmt.Errorf("unknown scale %q", name)
	}
	return a.services.Controller.SelectScale(scale), nil
}

// PlayScale plays the reference clip of the selected scale.
func (a *App) PlayScale() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	scale := a.services.Controller.Status().Scale
	if scale == nil {
		return usecase.ErrNoScale
	}
	data, err := a.services.Scales.Fetch(a.ctx, *scale)
	if err != nil {
		a.SessionError(domain.ErrorCodeScales, err.Error())
		return err
	}
	if err := a.services.Player.PlayClip(data); err != nil {
		a.SessionError(domain.ErrorCodePlayback, err.Error())
		return err
	}
	return nil
}

// StartRecording opens the microphone.
func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.services.Controller.StartRecording(a.ctx); err != nil {
		return a.services.Controller.Status(), err
	}
	return a.services.Controller.Status(), nil
}

// StopRecording finalises the recording.
func (a *App) StopRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if _, err := a.services.Controller.StopRecording(a.ctx); err != nil {
		if errors.Is(err, usecase.ErrNotRecording) {
			return a.services.Controller.Status(), nil
		}
		return a.services.Controller.Status(), err
	}
	return a.services.Controller.Status(), nil
}

// Analyze uploads the recording and returns the rendered result.
func (a *App) Analyze() (render.Plan, error) {
	if err := a.requireReady(); err != nil {
		return render.Plan{}, err
	}
	return a.services.Controller.Analyze(a.ctx)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.services.Controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateFailed, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle}
	}
	return a.services.Controller.Status()
}

// GetPlan renders the live session result.
func (a *App) GetPlan() render.Plan {
	if a.services.Controller == nil {
		return render.NoResult()
	}
	return a.services.Controller.Plan()
}

// GetFeedbackPlan renders the result kept in the session store.
func (a *App) GetFeedbackPlan() render.Plan {
	if a.services.Feedback == nil {
		return render.NoResult()
	}
	return a.services.Feedback.Plan()
}

// PlayPitchGroup plays the recording over one pitch group's time range.
func (a *App) PlayPitchGroup(index int) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Controller.PlayPitchGroup(index)
}

// SeekPlayback jumps the active pitch-group playback to seconds into the recording.
func (a *App) SeekPlayback(seconds float64) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.services.Controller.SeekPlayback(time.Duration(seconds * float64(time.Second)))
}

func (a *App) StopPlayback() {
	if a.services.Controller != nil {
		a.services.Controller.StopPlayback()
	}
}

// OpenFeedback opens the standalone feedback view in the browser.
func (a *App) OpenFeedback() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	url := a.services.Feedback.URL()
	if url == "" {
		return fmt.Errorf("feedback server is not running")
	}
	runtime.BrowserOpenURL(a.ctx, url+"/feedback.html")
	return nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	cfg := a.services.Config
	info := map[string]string{
		"server":           cfg.Server.BaseURL,
		"uploadPath":       cfg.Server.UploadPath,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
		"sampleRate":       fmt.Sprint(cfg.Audio.SampleRate),
		"captureAvailable": fmt.Sprint(a.services.CaptureAvailable),
		"configFile":       cfg.Path,
	}
	if a.services.Feedback != nil {
		info["feedbackURL"] = a.services.Feedback.URL()
	}
	return info
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.services.Controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	payload := map[string]interface{}{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	}
	if a.services.Controller != nil {
		payload["status"] = a.services.Controller.Status()
	}
	a.emitEvent(eventSession, payload)
}

// AnalysisReady emits a freshly rendered analysis.
func (a *App) AnalysisReady(plan render.Plan) {
	a.emitEvent(eventAnalysis, plan)
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	a.emitEvent(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) emitEvent(name string, data interface{}) {
	if a.ctx == nil || a.emit == nil {
		return
	}
	a.emit(a.ctx, name, data)
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonReady:
		return "스케일을 선택하세요"
	case domain.SessionReasonScaleSelected:
		return "스케일이 선택되었습니다"
	case domain.SessionReasonRequestingMic:
		return "마이크 연결 중..."
	case domain.SessionReasonRecordingStarted:
		return "녹음 중..."
	case domain.SessionReasonRecordingRestarted:
		return "녹음 중... (이전 녹음은 삭제되었습니다)"
	case domain.SessionReasonRecordingStopped:
		return "녹음 완료"
	case domain.SessionReasonCaptureInterrupted:
		return "녹음이 중단되었습니다"
	case domain.SessionReasonMicUnavailable:
		return "마이크 접근 오류"
	case domain.SessionReasonAnalyzing:
		return "분석 중..."
	case domain.SessionReasonAnalysisComplete:
		return "분석 완료"
	case domain.SessionReasonAnalysisFailed:
		return "분석 실패"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "시작 실패"
	case domain.ErrorCodePermission:
		return "마이크에 접근할 수 없습니다. 권한을 확인해주세요."
	case domain.ErrorCodeDevice:
		return "녹음 장치를 사용할 수 없습니다"
	case domain.ErrorCodeAudioStop:
		return "녹음 종료 중 문제가 발생했습니다"
	case domain.ErrorCodeAudioRead:
		return "오디오 입력 오류"
	case domain.ErrorCodeUpload:
		return "오류: " + detail
	case domain.ErrorCodePlayback:
		return "재생 오류"
	case domain.ErrorCodeScales:
		if detail != "" {
			return detail
		}
		return "스케일 목록을 불러올 수 없습니다"
	default:
		if detail == "" {
			return "알 수 없는 오류"
		}
		return detail
	}
}
