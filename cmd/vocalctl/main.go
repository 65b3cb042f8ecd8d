package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"voicecoach/internal/analysis"
	"voicecoach/internal/audio"
	"voicecoach/internal/config"
	"voicecoach/internal/domain"
	"voicecoach/internal/logging"
	"voicecoach/internal/ports"
	"voicecoach/internal/recorder"
	"voicecoach/internal/render"
	"voicecoach/internal/scales"
)

type cli struct {
	server   string
	logLevel string

	cfg config.Config
	log zerolog.Logger
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "vocalctl",
		Short:         "Record, upload and inspect vocal scale analyses",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if c.server != "" {
				cfg.Server.BaseURL = c.server
			}
			if c.logLevel != "" {
				cfg.Log.Level = c.logLevel
			}
			c.cfg = cfg
			c.log = logging.Console(cfg.Log.Level, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.server, "server", "", "analysis server base URL")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(c.scalesCmd(), c.recordCmd(), c.analyzeCmd())
	return root
}

func (c *cli) scalesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scales",
		Short: "List the reference scales offered by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog := c.scaleClient().Load(cmd.Context())
			out := cmd.OutOrStdout()
			if catalog.Warning != "" {
				fmt.Fprintln(out, catalog.Warning)
			}
			for _, s := range catalog.Scales {
				fmt.Fprintf(out, "%s\t%s\n", s.Name, s.Path)
			}
			return nil
		},
	}
}

func (c *cli) recordCmd() *cobra.Command {
	var (
		duration time.Duration
		outPath  string
		analyze  bool
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record from the microphone into a WAV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := audio.Probe(c.cfg.Audio.RecorderCommand); err != nil {
				return err
			}
			rec := recorder.New(audio.NewFFMPEGCapture(c.cfg.Audio.RecorderCommand), recorder.Config{
				Audio: ports.AudioConfig{
					SampleRate:  c.cfg.Audio.SampleRate,
					Channels:    c.cfg.Audio.Channels,
					InputFormat: c.cfg.Audio.InputFormat,
					InputDevice: c.cfg.Audio.InputDevice,
				},
				ChunkSize: c.cfg.Session.ChunkSize,
				Dir:       c.cfg.Session.RecordingDir,
			}, c.log)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			rec.OnInterrupt(func(_ domain.Recording, err error) {
				c.log.Warn().Err(err).Msg("capture ended early")
				cancel()
			})

			recording, err := recordFor(ctx, rec, duration)
			if errors.Is(err, recorder.ErrNoActiveSession) {
				if last, ok := rec.Last(); ok {
					recording, err = last, nil
				}
			}
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := os.Rename(recording.Path, outPath); err != nil {
					return fmt.Errorf("move recording: %w", err)
				}
				recording.Path = outPath
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d bytes\n", recording.Path, recording.Duration.Round(time.Millisecond), recording.Size)

			if !analyze {
				return nil
			}
			return c.upload(cmd.Context(), cmd.OutOrStdout(), recording, asJSON)
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 5*time.Second, "how long to record")
	cmd.Flags().StringVar(&outPath, "out", "", "write the recording to this path")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "upload the recording for analysis")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the analysis as JSON")
	return cmd
}

func (c *cli) analyzeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Upload a WAV file and print the analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := audio.ReadWAVInfo(args[0])
			if err != nil {
				return err
			}
			recording := domain.Recording{
				SessionID:  uuid.NewString(),
				Path:       info.Path,
				MIMEType:   "audio/wav",
				Size:       info.Size,
				SampleRate: info.SampleRate,
				Channels:   info.Channels,
				Duration:   info.Duration,
			}
			return c.upload(cmd.Context(), cmd.OutOrStdout(), recording, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw analysis as JSON")
	return cmd
}

func (c *cli) upload(ctx context.Context, out io.Writer, recording domain.Recording, asJSON bool) error {
	client := analysis.NewClient(analysis.Config{
		BaseURL:    c.cfg.Server.BaseURL,
		UploadPath: c.cfg.Server.UploadPath,
		Timeout:    c.cfg.Server.UploadTimeout.ToDuration(),
	}, c.log)

	result, err := client.Upload(ctx, recording)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return render.WriteText(out, render.Build(result))
}

func (c *cli) scaleClient() *scales.Client {
	return scales.NewClient(scales.Config{
		BaseURL:      c.cfg.Server.BaseURL,
		ScalesPath:   c.cfg.Server.ScalesPath,
		StaticPrefix: c.cfg.Server.StaticPrefix,
		Timeout:      c.cfg.Server.RequestTimeout.ToDuration(),
	}, c.log)
}

// recordFor records until d elapses or ctx is cancelled, then finalises.
func recordFor(ctx context.Context, rec ports.Recorder, d time.Duration) (domain.Recording, error) {
	if d <= 0 {
		return domain.Recording{}, errors.New("duration must be positive")
	}
	if err := rec.Start(ctx); err != nil {
		return domain.Recording{}, err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return rec.Stop(stopCtx)
}
