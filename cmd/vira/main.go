package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"vira/internal/assistant"
	"vira/internal/bus"
	"vira/internal/command"
	"vira/internal/config"
	"vira/internal/console"
	"vira/internal/logging"
	"vira/internal/voice"
	"vira/pkg/stt"
)

func main() {
	cfg, err := config.Load(cli.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var logOut io.Writer = os.Stderr
	if cfg.Mode == "tui" {
		f, err := os.OpenFile("vira.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logging.Setup(logOut, cfg.LogLevel)

	log.Info("Starting Vira", "mode", cfg.Mode, "name", cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := command.NewEngine(
		command.WithName(cfg.Name),
		command.WithOverrideFile(cfg.Commands),
	)
	session := assistant.New(engine)

	if err := run(ctx, cfg, session); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Session failed", "err", err)
		stop()
		os.Exit(1)
	}

	log.Info("Session ended", "session", session.ID())
}

func run(ctx context.Context, cfg config.Config, session *assistant.Session) error {
	stdout := assistant.NewWriterSpeaker(os.Stdout, session.Name())

	switch cfg.Mode {
	case "line":
		in := assistant.NewLineListener(os.Stdin)
		defer in.Close()

		return session.Run(ctx, in, stdout)

	case "tui":
		return console.Run(ctx, session, nil)

	case "bus":
		b, err := bus.Dial(ctx, bus.Config{
			URL:       cfg.BusURL,
			Shard:     cfg.Name,
			Proxy:     cfg.Proxy,
			Reconnect: 5 * time.Second,
		})
		if err != nil {
			return err
		}
		defer b.Close()

		return session.Run(ctx, b, assistant.MultiSpeaker{b, stdout})

	case "clips":
		if len(cfg.Clips) == 0 {
			return errors.New("clips mode needs at least one --clip")
		}

		tr, err := stt.NewTranscriber(cfg.Model, stt.Options{
			Language: cfg.Language,
			Threads:  cfg.Threads,
		})
		if err != nil {
			return fmt.Errorf("init whisper: %w", err)
		}
		defer tr.Close()

		return session.Run(ctx, voice.NewClipListener(cfg.Clips, tr), stdout)

	default:
		return fmt.Errorf("unknown mode %q", cfg.Mode)
	}
}
