package usecase

import (
	"voicecoach/internal/domain"
)

// Status texts shown next to the record and analyze controls.
const (
	textReady        = "스케일을 선택하세요"
	textRecording    = "녹음 중..."
	textRecorded     = "녹음 완료"
	textMicError     = "마이크 접근 오류"
	textInterrupted  = "녹음이 중단되었습니다"
	textAnalyzing    = "분석 중..."
	textAnalyzed     = "분석 완료"
	textFailedPrefix = "오류: "
)

// sessionState is everything the controller owns. Guarded by the
// controller mutex.
type sessionState struct {
	state     domain.SessionState
	message   string
	scale     *domain.Scale
	recording *domain.Recording
	result    *domain.AnalysisResult
	busy      bool
}

func (s *sessionState) set(state domain.SessionState, message string) {
	s.state = state
	s.message = message
}

func (s *sessionState) status(captureAvailable, active bool) domain.Status {
	st := domain.Status{
		State:            s.state,
		Active:           active,
		Busy:             s.busy,
		Message:          s.message,
		HasRecording:     s.recording != nil,
		HasResult:        s.result != nil,
		CaptureAvailable: captureAvailable,
	}
	if s.scale != nil {
		scale := *s.scale
		st.Scale = &scale
	}
	return st
}

func failureText(err error) string {
	return textFailedPrefix + err.Error()
}
