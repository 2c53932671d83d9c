package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"vira/internal/assistant"
	"vira/internal/audio"
	"vira/internal/command"
	"vira/internal/config"
	"vira/internal/ipc"
	"vira/internal/logging"
	"vira/internal/notify"
	"vira/internal/tts"
	"vira/internal/voice"
	"vira/pkg/stt"
)

type daemon struct {
	session *assistant.Session
	mic     *voice.MicListener
	speaker assistant.Speaker

	// one capture at a time
	captureMu sync.Mutex
}

func main() {
	cfg, err := config.Load(cli.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logging.Setup(os.Stdout, cfg.LogLevel)

	log.Info("Booting up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := audio.NewRecorder(cfg.MaxListen)
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.Model, stt.Options{
		Language: cfg.Language,
		Threads:  cfg.Threads,
	})
	if err != nil {
		log.Error("Failed to init whisper", "model", cfg.Model, "err", err)
		os.Exit(1)
	}
	defer whisper.Close()

	log.Debug("Loaded whisper")

	var speaker assistant.Speaker = tts.NewSpeaker(cfg.Voice)
	if cfg.Duck {
		ducker := audio.NewDucker([]string{"espeak-ng", "espeak", "vira"}, 10)
		speaker = audio.Ducked(speaker, ducker, 0.3, 300*time.Millisecond)
	}

	engine := command.NewEngine(
		command.WithName(cfg.Name),
		command.WithOverrideFile(cfg.Commands),
	)

	d := &daemon{
		session: assistant.New(engine),
		mic:     voice.NewMicListener(rec, whisper, voice.WithCue(notify.NewBeeper(cfg.Beep))),
		speaker: speaker,
	}

	if err := d.session.Start(); err != nil {
		log.Error("Failed to start session", "err", err)
		os.Exit(1)
	}

	server, err := ipc.Listen(cfg.Socket, d.handle, nil)
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	go func() {
		select {
		case <-d.session.Done():
		case <-ctx.Done():
			d.session.Stop()
		}
		server.Close()
	}()

	log.Info("Boot up - successful", "socket", server.Path(), "session", d.session.ID())
	d.say(ctx, d.session.Welcome())

	if err := server.Serve(ctx); err != nil && !errors.Is(err, ipc.ErrClosed) {
		log.Error("IPC server failed", "err", err)
	}

	log.Info("Shutting down")
}

func (d *daemon) handle(ctx context.Context, msg ipc.ControlMessage) (string, error) {
	switch msg.Cmd {
	case ipc.CmdTrigger:
		return d.trigger(ctx)
	case ipc.CmdSay:
		return d.respond(ctx, msg.Text)
	case ipc.CmdStop:
		d.session.Stop()
		d.say(ctx, command.MsgGoodbye)
		return command.MsgGoodbye, nil
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return "", fmt.Errorf("unknown command %q", msg.Cmd)
	}
}

func (d *daemon) trigger(ctx context.Context) (string, error) {
	if !d.captureMu.TryLock() {
		return "", errors.New("already listening")
	}
	defer d.captureMu.Unlock()

	if err := notify.Desktop(ctx, "Listening..."); err != nil {
		log.Debug("No desktop notification", "err", err)
	}

	text, err := d.mic.Listen(ctx)
	if err != nil {
		return "", err
	}

	return d.respond(ctx, text)
}

func (d *daemon) respond(ctx context.Context, utterance string) (string, error) {
	reply, err := d.session.Handle(ctx, strings.TrimSpace(utterance))
	if err != nil {
		return "", err
	}

	log.Info("Reply", "utterance", utterance, "reply", reply.Text)
	d.say(ctx, reply.Text)

	return reply.Text, nil
}

func (d *daemon) say(ctx context.Context, text string) {
	if err := d.speaker.Speak(ctx, text); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
}
