package bootstrap

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"voicecoach/internal/analysis"
	"voicecoach/internal/audio"
	"voicecoach/internal/config"
	"voicecoach/internal/feedback"
	"voicecoach/internal/logging"
	"voicecoach/internal/playback"
	"voicecoach/internal/ports"
	"voicecoach/internal/recorder"
	"voicecoach/internal/scales"
	"voicecoach/internal/session"
	"voicecoach/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Recorder   *recorder.Recorder
	Analysis   *analysis.Client
	Scales     *scales.Client
	Store      *session.Store
	Player     *playback.Player
	Feedback   *feedback.Server
	Config     config.Config
	Logger     zerolog.Logger

	CaptureAvailable bool
}

// Options tune Build for the caller.
type Options struct {
	LogWriter io.Writer
	Output    playback.Output
	Feedback  feedback.Config
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, opts Options) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	if opts.LogWriter == nil {
		opts.LogWriter = os.Stderr
	}
	logger := logging.New(cfg.Log.Level, opts.LogWriter)

	captureAvailable := true
	if err := audio.Probe(cfg.Audio.RecorderCommand); err != nil {
		captureAvailable = false
		logger.Warn().Err(err).Str("command", cfg.Audio.RecorderCommand).Msg("audio capture unavailable")
	}

	store, err := session.Open(logger)
	if err != nil {
		return Services{}, err
	}

	rec := recorder.New(audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand), recorder.Config{
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		ChunkSize: cfg.Session.ChunkSize,
		Dir:       cfg.Session.RecordingDir,
	}, logger)

	analysisClient := analysis.NewClient(analysis.Config{
		BaseURL:    cfg.Server.BaseURL,
		UploadPath: cfg.Server.UploadPath,
		Timeout:    cfg.Server.UploadTimeout.ToDuration(),
	}, logger)

	scaleClient := scales.NewClient(scales.Config{
		BaseURL:      cfg.Server.BaseURL,
		ScalesPath:   cfg.Server.ScalesPath,
		StaticPrefix: cfg.Server.StaticPrefix,
		Timeout:      cfg.Server.RequestTimeout.ToDuration(),
	}, logger)

	output := opts.Output
	if output == nil {
		output = playback.NewSpeakerOutput(cfg.Playback.OutputRate)
	}
	player := playback.NewPlayer(output, logger)

	feedbackCfg := opts.Feedback
	if feedbackCfg.Addr == "" {
		feedbackCfg.Addr = cfg.Feedback.Addr
	}
	feedbackServer := feedback.NewServer(feedbackCfg, store, logger)

	controller := usecase.NewSessionController(usecase.Deps{
		Recorder:         rec,
		Analysis:         analysisClient,
		Store:            store,
		Player:           player,
		Events:           eventSink,
		CaptureAvailable: captureAvailable,
	}, logger)
	rec.OnInterrupt(controller.CaptureInterrupted)

	logger.Info().
		Str("server", cfg.Server.BaseURL).
		Str("config", cfg.Path).
		Bool("captureAvailable", captureAvailable).
		Msg("services ready")

	return Services{
		Controller:       controller,
		Recorder:         rec,
		Analysis:         analysisClient,
		Scales:           scaleClient,
		Store:            store,
		Player:           player,
		Feedback:         feedbackServer,
		Config:           cfg,
		Logger:           logger,
		CaptureAvailable: captureAvailable,
	}, nil
}

// Close releases the microphone, playback and the session store.
func (s Services) Close() error {
	if s.Player != nil {
		s.Player.Stop()
	}
	var firstErr error
	if s.Recorder != nil {
		if err := s.Recorder.Close(); err != nil {
			firstErr = err
		}
	}
	if s.Store != nil {
		if err := s.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
