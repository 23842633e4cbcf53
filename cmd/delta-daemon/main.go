package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"delta/internal/assistant"
	"delta/internal/audio"
	"delta/internal/capture"
	"delta/internal/config"
	"delta/internal/domain"
	"delta/internal/endpoint"
	"delta/internal/ipc"
	"delta/internal/logging"
	"delta/internal/notify"
	"delta/internal/present"
	"delta/internal/proxy"
	"delta/internal/speech"
	"delta/internal/status"
	"delta/internal/tts"
	"delta/pkg/stt"
)

type authChecker interface {
	CheckAuth(ctx context.Context) error
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	logFile := cli.String("log-file", "", "Rotating JSON log file")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks Proxy Address")
	backend := cli.StringP("backend", "b", "", "Reply backend (remote|openai)")
	busURL := cli.StringP("bus", "u", "", "Url of UI hub")
	model := cli.StringP("model", "m", "", "Whisper model path")
	cli.Parse()

	lvl, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	override(&cfg.Daemon.LogFile, *logFile)
	override(&cfg.Endpoint.Proxy, *proxyAddr)
	override(&cfg.Endpoint.Backend, *backend)
	override(&cfg.Daemon.Bus, *busURL)
	override(&cfg.Speech.WhisperModel, *model)

	lg, closer := logging.New(logging.Options{Level: lvl, File: cfg.Daemon.LogFile})
	defer closer.Close()
	log.SetDefault(lg)

	log.Info("Booting up")

	if err := cfg.Validate(); err != nil {
		log.Error("Invalid config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := present.Fanout{present.NewLog(lg)}
	if cfg.Daemon.Bus != "" {
		bus, err := present.NewBus(cfg.Daemon.Bus, time.Second, lg)
		if err != nil {
			log.Warn("UI hub unavailable, continuing without it", "url", cfg.Daemon.Bus, "err", err)
		} else {
			defer bus.Close()
			go bus.Run(ctx)
			sinks = append(sinks, bus)
		}
	}
	tracker := status.NewTracker(sinks, cfg.Daemon.RevertDelay)

	httpClient, err := proxy.NewClient(cfg.Endpoint.Proxy, cfg.Endpoint.Timeout)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", cfg.Endpoint.Proxy, "err", err)
		os.Exit(1)
	}

	ep, err := newEndpoint(cfg, httpClient, lg)
	if err != nil {
		log.Error("Failed to set up endpoint", "backend", cfg.Endpoint.Backend, "err", err)
		os.Exit(1)
	}
	log.Debug("Loaded endpoint", "backend", cfg.Endpoint.Backend)

	speaker := newSpeaker(cfg, lg)
	defer speaker.Close()
	go speaker.Watch(ctx)

	recognizer, release := newRecognizer(cfg, lg)
	defer release()

	var listener *capture.Listener
	acfg := assistant.Config{
		WakeWord: cfg.Speech.WakeWord,
		OnExpire: func() { listener.Stop() },
	}
	if cfg.Speech.Chime != "" {
		acfg.Chime = notify.NewChime(cfg.Speech.Chime)
	}
	asst := assistant.New(ep, speaker, tracker, acfg, lg)

	listener = capture.NewListener(recognizer, tracker, capture.Options{
		OnUnsupported: asst.ReportUnsupported,
	}, lg)

	if authorized(ctx, ep) {
		listener.Start()
	} else {
		tracker.Navigate(domain.LoginPath)
	}

	srv := ipc.NewServer(cfg.Daemon.Socket, control(asst, listener, recognizer), lg)
	go func() {
		if err := srv.Serve(ctx); err != nil {
			log.Error("Control socket failed", "err", err)
			stop()
		}
	}()
	go func() {
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Listener stopped", "err", err)
		}
	}()

	log.Info("Boot up - successful")

	if err := asst.Run(ctx, listener.Transcripts()); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Assistant stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shutting down")
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}

func newEndpoint(cfg *config.Config, hc *http.Client, lg *log.Logger) (assistant.Endpoint, error) {
	switch cfg.Endpoint.Backend {
	case config.BackendOpenAI:
		return endpoint.NewOpenAI(endpoint.OpenAIConfig{
			APIKey: cfg.Endpoint.OpenAIKey,
			Model:  cfg.Endpoint.OpenAIModel,
		}, hc, lg)
	default:
		return endpoint.NewClient(cfg.Endpoint.BaseURL, hc, endpoint.Options{
			Session: cfg.Endpoint.Session,
		}, lg)
	}
}

// authorized reports false only when the endpoint says the session expired.
func authorized(ctx context.Context, ep assistant.Endpoint) bool {
	ac, ok := ep.(authChecker)
	if !ok {
		return true
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := ac.CheckAuth(cctx)
	switch {
	case err == nil:
		log.Debug("Session valid")
		return true
	case errors.Is(err, domain.ErrAuthExpired):
		log.Warn("Session expired, log in and restart")
		return false
	default:
		log.Warn("Auth check failed, continuing", "err", err)
		return true
	}
}

// newSpeaker hands the engine to the speaker; closing the speaker terminates it.
func newSpeaker(cfg *config.Config, lg *log.Logger) *speech.Speaker {
	var synth speech.Synthesizer = speech.Mute{}
	if es, err := tts.NewEspeak(); err != nil {
		log.Warn("Speech synthesis unavailable, replies will be text only", "err", err)
	} else {
		synth = es
		log.Debug("Loaded espeak")
	}

	opts := speech.Options{DuckFade: 150 * time.Millisecond}
	if cfg.Speech.Duck {
		opts.Ducker = audio.NewDucker([]string{"delta-daemon", "espeak-ng", "ALSA plug-in [delta-daemon]"}, 10)
	}
	return speech.NewSpeaker(synth, opts, lg)
}

// newRecognizer loads what it can. A missing microphone or model leaves the
// recognizer unsupported rather than failing the boot.
func newRecognizer(cfg *config.Config, lg *log.Logger) (*capture.Whisper, func()) {
	var (
		src      capture.Source
		tr       capture.Transcriber
		releases []func()
	)

	rec := audio.NewRecorder(audio.DefaultRecorderConfig)
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
	} else {
		src = rec
		releases = append(releases, rec.Close)
		log.Debug("Loaded recorder")
	}

	whisper, err := stt.NewTranscriber(cfg.Speech.WhisperModel, stt.Options{
		Language:      cfg.Speech.Language,
		InitialPrompt: cfg.Speech.WakeWord,
	})
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.Speech.WhisperModel, "err", err)
	} else {
		tr = whisper
		releases = append(releases, func() { _ = whisper.Close() })
		log.Debug("Loaded whisper")
	}

	return capture.NewWhisper(src, tr, lg), func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}
