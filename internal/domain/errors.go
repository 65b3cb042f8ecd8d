package domain

import "errors"

var (
	// ErrPermissionDenied means the capture device refused microphone access.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrDeviceUnavailable means no capture backend can be started.
	ErrDeviceUnavailable = errors.New("audio capture unavailable")
	// ErrUploadFailed matches every AnalysisFailedError.
	ErrUploadFailed = errors.New("upload failed")
)

// AnalysisFailedError carries the server-provided or transport error message.
type AnalysisFailedError struct {
	Message    string
	StatusCode int
	Err        error
}

func (e *AnalysisFailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ErrUploadFailed.Error()
}

func (e *AnalysisFailedError) Unwrap() error { return e.Err }

func (e *AnalysisFailedError) Is(target error) bool { return target == ErrUploadFailed }
