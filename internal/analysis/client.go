package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"voicecoach/internal/domain"
)

const (
	// FieldName and FileName are fixed by the analysis server.
	FieldName = "audio"
	FileName  = "recording.wav"

	defaultUploadPath = "/upload"
)

// Config controls the analysis endpoint.
type Config struct {
	BaseURL    string
	UploadPath string
	Timeout    time.Duration
}

// Client uploads recordings to the analysis server.
type Client struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger

	sf singleflight.Group
}

type envelope struct {
	Success bool                   `json:"success"`
	Result  *domain.AnalysisResult `json:"result"`
	Error   string                 `json:"error"`
}

func NewClient(cfg Config, log zerolog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.UploadPath == "" {
		cfg.UploadPath = defaultUploadPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log.With().Str("component", "analysis").Logger(),
	}
}

// Endpoint is the absolute upload URL.
func (c *Client) Endpoint() string {
	return c.cfg.BaseURL + c.cfg.UploadPath
}

// Upload posts the recording and returns the analysis. Concurrent calls for
// the same recording share one request.
func (c *Client) Upload(ctx context.Context, rec domain.Recording) (*domain.AnalysisResult, error) {
	key := rec.SessionID
	if key == "" {
		key = rec.Path
	}
	v, err, shared := c.sf.Do(key, func() (any, error) {
		return c.upload(ctx, rec)
	})
	if shared {
		c.log.Debug().Str("session", rec.SessionID).Msg("joined in-flight upload")
	}
	if err != nil {
		return nil, err
	}
	return v.(*domain.AnalysisResult), nil
}

func (c *Client) upload(ctx context.Context, rec domain.Recording) (*domain.AnalysisResult, error) {
	body, contentType, err := multipartBody(rec.Path)
	if err != nil {
		return nil, &domain.AnalysisFailedError{Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), body)
	if err != nil {
		return nil, &domain.AnalysisFailedError{Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("url", c.Endpoint()).Msg("upload transport failed")
		return nil, &domain.AnalysisFailedError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.AnalysisFailedError{Message: err.Error(), StatusCode: resp.StatusCode, Err: err}
	}

	result, err := decodeEnvelope(resp.StatusCode, data)
	if err != nil {
		c.log.Error().Err(err).Int("status", resp.StatusCode).Msg("analysis failed")
		return nil, err
	}

	c.log.Info().
		Str("wavKey", result.WavKey).
		Int("segments", len(result.Segments)).
		Dur("elapsed", time.Since(started)).
		Msg("analysis received")
	return result, nil
}

func decodeEnvelope(status int, data []byte) (*domain.AnalysisResult, error) {
	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if status < 200 || status >= 300 {
		msg := strings.TrimSpace(env.Error)
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("server returned %d: %s", status, strings.TrimSpace(string(data)))
		}
		return nil, &domain.AnalysisFailedError{Message: msg, StatusCode: status}
	}
	if decodeErr != nil {
		return nil, &domain.AnalysisFailedError{
			Message:    "invalid analysis response: " + decodeErr.Error(),
			StatusCode: status,
			Err:        decodeErr,
		}
	}
	if !env.Success {
		msg := strings.TrimSpace(env.Error)
		if msg == "" {
			msg = "파일 업로드 중 오류가 발생했습니다."
		}
		return nil, &domain.AnalysisFailedError{Message: msg, StatusCode: status}
	}
	if env.Result == nil {
		return &domain.AnalysisResult{}, nil
	}
	return env.Result, nil
}

func multipartBody(path string) (*bytes.Buffer, string, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile(FieldName, FileName)
	if err != nil {
		return nil, "", err
	}
	fd, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, "", err
	}
	if err = w.Close(); err != nil {
		return nil, "", err
	}
	return &b, w.FormDataContentType(), nil
}
