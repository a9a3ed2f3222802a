// Command voiceagent is a terminal front-end for a real-time voice agent. It joins
// the media room to hear the agent, drives the agent session on the backend and
// shows the live transcript.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"example.com/voice_agent/client"
	"example.com/voice_agent/internal/config"
	"example.com/voice_agent/internal/logging"
	"example.com/voice_agent/pkg/audio"
	"example.com/voice_agent/pkg/metrics"
	"example.com/voice_agent/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type options struct {
	configPath   string
	backendURL   string
	room         string
	identity     string
	systemPrompt string
	logLevel     string
	logFile      string
	audioOutput  string
	metricsAddr  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "voiceagent",
		Short:         "Talk to a real-time voice agent from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	f.StringVar(&opts.backendURL, "backend-url", config.DefaultBackendURL, "agent backend base URL")
	f.StringVar(&opts.room, "room", config.DefaultRoom, "media room name")
	f.StringVar(&opts.identity, "identity", config.DefaultIdentity, "participant identity")
	f.StringVar(&opts.systemPrompt, "system-prompt", "", "system prompt sent with start_session")
	f.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "log level (trace, debug, info, warn, error)")
	f.StringVar(&opts.logFile, "log-file", config.DefaultLogFile, `log file, "-" for stderr`)
	f.StringVar(&opts.audioOutput, "audio-output", config.DefaultAudioOutput, `"speaker", "discard" or a file for raw PCM`)
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address")

	return cmd
}

// loadConfig layers flags the user actually set over the loaded config
func loadConfig(cmd *cobra.Command, opts options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if f.Changed(name) {
			*dst = v
		}
	}
	override("backend-url", &cfg.BackendURL, opts.backendURL)
	override("room", &cfg.Room, opts.room)
	override("identity", &cfg.Identity, opts.identity)
	override("system-prompt", &cfg.SystemPrompt, opts.systemPrompt)
	override("log-level", &cfg.LogLevel, opts.logLevel)
	override("log-file", &cfg.LogFile, opts.logFile)
	override("audio-output", &cfg.AudioOutput, opts.audioOutput)
	override("metrics-addr", &cfg.MetricsAddr, opts.metricsAddr)

	return cfg, cfg.Validate()
}

func openOutput(target string) (audio.Output, error) {
	switch target {
	case "", "speaker":
		return audio.OpenSpeaker()
	case "discard":
		return audio.Discard, nil
	default:
		f, err := os.Create(target)
		if err != nil {
			return nil, errors.Wrapf(err, "create audio output %s", target)
		}
		return audio.NewWriterOutput(f), nil
	}
}

func run(parent context.Context, cfg config.Config) error {
	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, err := openOutput(cfg.AudioOutput)
	if errors.Is(err, audio.ErrSpeakerUnavailable) {
		log.Warn().Err(err).Msg("no speaker output, remote audio will be discarded")
		out, err = audio.Discard, nil
	}
	if err != nil {
		return err
	}
	player := audio.NewPlayer(out)
	defer player.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	alerts := ui.NewAlerts()
	c, err := client.New(cfg.BackendURL,
		client.WithAttacher(player),
		client.WithNotifier(alerts),
		client.WithMetrics(recorder),
		client.WithSystemPrompt(cfg.SystemPrompt),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	log.Info().
		Str("backend_url", cfg.BackendURL).
		Str("room", cfg.Room).
		Str("identity", cfg.Identity).
		Str("client_id", c.ID).
		Msg("voice agent starting")

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		exporter := metrics.NewExporter(cfg.MetricsAddr, reg)
		g.Go(func() error {
			return exporter.Run(gctx)
		})
	}
	g.Go(func() error {
		// quitting the UI ends the program, so cancel the exporter too
		defer stop()
		err := ui.Run(gctx, c, alerts, cfg.Room, cfg.Identity)
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	log.Info().Err(err).Msg("voice agent stopped")
	return err
}
