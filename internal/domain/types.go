package domain

import "time"

// SessionState models the record -> analyze lifecycle.
type SessionState string

const (
	SessionStateIdle          SessionState = "idle"
	SessionStateRequesting    SessionState = "requesting"
	SessionStateRecording     SessionState = "recording"
	SessionStateStopped       SessionState = "stopped"
	SessionStateUploading     SessionState = "uploading"
	SessionStateAnalysisReady SessionState = "analysis_ready"
	SessionStateFailed        SessionState = "failed"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonReady              SessionStateReason = "ready"
	SessionReasonScaleSelected      SessionStateReason = "scale_selected"
	SessionReasonRequestingMic      SessionStateReason = "requesting_mic"
	SessionReasonRecordingStarted   SessionStateReason = "recording_started"
	SessionReasonRecordingRestarted SessionStateReason = "recording_restarted"
	SessionReasonRecordingStopped   SessionStateReason = "recording_stopped"
	SessionReasonCaptureInterrupted SessionStateReason = "capture_interrupted"
	SessionReasonMicUnavailable     SessionStateReason = "mic_unavailable"
	SessionReasonAnalyzing          SessionStateReason = "analyzing"
	SessionReasonAnalysisComplete   SessionStateReason = "analysis_complete"
	SessionReasonAnalysisFailed     SessionStateReason = "analysis_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodePermission ErrorCode = "permission"
	ErrorCodeDevice     ErrorCode = "device"
	ErrorCodeAudioStop  ErrorCode = "audio_stop"
	ErrorCodeAudioRead  ErrorCode = "audio_read"
	ErrorCodeUpload     ErrorCode = "upload"
	ErrorCodePlayback   ErrorCode = "playback"
	ErrorCodeScales     ErrorCode = "scales"
)

// Scale is a pre-recorded reference clip the user imitates.
type Scale struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Recording is the single finalised audio object of a session.
type Recording struct {
	SessionID  string        `json:"sessionId"`
	Path       string        `json:"path"`
	MIMEType   string        `json:"mimeType"`
	Size       int64         `json:"size"`
	SampleRate int           `json:"sampleRate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
}

// Segment is one fine-grained analysed interval.
type Segment struct {
	SegmentIndex int      `json:"segmentIndex"`
	StartTimeSec float64  `json:"startTimeSec"`
	EndTimeSec   float64  `json:"endTimeSec"`
	VocalCord    string   `json:"vocalCord"`
	Contact      string   `json:"contact"`
	Larynx       string   `json:"larynx"`
	Strength     string   `json:"strength"`
	Pitch        *float64 `json:"pitch,omitempty"`
}

// PitchGroup aggregates segments by perceived pitch range.
type PitchGroup struct {
	PitchGroup   string  `json:"pitchGroup"`
	AvgPitch     float64 `json:"avgPitch"`
	StartTimeSec float64 `json:"startTimeSec"`
	EndTimeSec   float64 `json:"endTimeSec"`
	VocalCord    string  `json:"vocalCord"`
	Contact      string  `json:"contact"`
	Larynx       string  `json:"larynx"`
	Strength     string  `json:"strength"`
	Feedback     string  `json:"feedback"`
}

// SegmentGroup merges adjacent segments that share attributes.
type SegmentGroup struct {
	StartTimeSec   float64 `json:"startTimeSec"`
	EndTimeSec     float64 `json:"endTimeSec"`
	Feedback       string  `json:"feedback"`
	VocalCord      string  `json:"vocalCord"`
	Contact        string  `json:"contact"`
	Larynx         string  `json:"larynx"`
	Strength       string  `json:"strength"`
	SegmentIndices []int   `json:"segmentIndices"`
}

// AnalysisResult is the server's read-only analysis of one upload.
type AnalysisResult struct {
	WavKey               string         `json:"wavKey"`
	ScaleType            string         `json:"scaleType"`
	Segments             []Segment      `json:"segments"`
	PitchGroups          []PitchGroup   `json:"pitchGroups,omitempty"`
	ConsolidatedSegments []SegmentGroup `json:"consolidatedSegments,omitempty"`
}

// Status summarizes the current runtime status for the UI controls.
type Status struct {
	State            SessionState `json:"state"`
	Active           bool         `json:"active"`
	Busy             bool         `json:"busy"`
	Message          string       `json:"message,omitempty"`
	Scale            *Scale       `json:"scale,omitempty"`
	HasRecording     bool         `json:"hasRecording"`
	HasResult        bool         `json:"hasResult"`
	CaptureAvailable bool         `json:"captureAvailable"`
}

// CanRecord reports whether the record control should be enabled.
func (s Status) CanRecord() bool {
	return s.CaptureAvailable && s.Scale != nil && !s.Busy && !s.Active
}

// CanAnalyze reports whether the upload control should be enabled.
func (s Status) CanAnalyze() bool {
	return s.HasRecording && !s.Busy && !s.Active
}
