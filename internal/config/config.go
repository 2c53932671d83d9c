// Package config loads assistant settings from an optional .env file, the
// VIRA_* environment and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
)

type Config struct {
	Name     string `env:"VIRA_NAME"     envDefault:"Vira"`
	LogLevel string `env:"VIRA_LOG"      envDefault:"info"`
	Commands string `env:"VIRA_COMMANDS" envDefault:"commands_database.json"`
	Mode     string `env:"VIRA_MODE"     envDefault:"line"`

	BusURL string `env:"VIRA_BUS_URL" envDefault:"ws://localhost:8092/ws"`
	Proxy  string `env:"VIRA_PROXY"`

	Model     string        `env:"VIRA_WHISPER_MODEL" envDefault:"third_party/whisper.cpp/models/ggml-base.en.bin"`
	Language  string        `env:"VIRA_LANGUAGE"      envDefault:"en"`
	Threads   int           `env:"VIRA_THREADS"       envDefault:"0"`
	MaxListen time.Duration `env:"VIRA_MAX_LISTEN"    envDefault:"10s"`
	Clips     []string      `env:"VIRA_CLIPS"         envSeparator:","`

	Beep   string `env:"VIRA_BEEP" envDefault:"beep.mp3"`
	Duck   bool   `env:"VIRA_DUCK" envDefault:"true"`
	Voice  string `env:"VIRA_VOICE" envDefault:"en"`
	Socket string `env:"VIRA_SOCKET" envDefault:"/tmp/vira.sock"`
}

// Load reads the env file named by --env (missing files are fine), then the
// environment, then the remaining flags.
func Load(fs *cli.FlagSet, args []string) (Config, error) {
	envFile := ".env"
	pre := cli.NewFlagSet("env", cli.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.Usage = func() {}
	pre.StringVarP(&envFile, "env", "e", envFile, "")
	_ = pre.Parse(args)

	_ = godotenv.Load(envFile)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	fs.StringP("env", "e", envFile, "Env file path")
	fs.StringVarP(&cfg.Name, "name", "n", cfg.Name, "Assistant name")
	fs.StringVarP(&cfg.LogLevel, "log", "l", cfg.LogLevel, "Log level")
	fs.StringVarP(&cfg.Commands, "commands", "c", cfg.Commands, "Command override file (.json, .yaml)")
	fs.StringVarP(&cfg.Mode, "mode", "m", cfg.Mode, "Front end: line, tui, bus or clips")
	fs.StringVarP(&cfg.BusURL, "bus-url", "u", cfg.BusURL, "Url of bus")
	fs.StringVarP(&cfg.Proxy, "proxy", "p", cfg.Proxy, "Socks Proxy Address")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Whisper model path")
	fs.StringVar(&cfg.Language, "lang", cfg.Language, "Transcription language")
	fs.IntVar(&cfg.Threads, "threads", cfg.Threads, "Transcription threads (0 = all CPUs)")
	fs.DurationVar(&cfg.MaxListen, "max-listen", cfg.MaxListen, "Longest utterance to record")
	fs.StringSliceVar(&cfg.Clips, "clip", cfg.Clips, "Audio clip to transcribe (repeatable)")
	fs.StringVar(&cfg.Beep, "beep", cfg.Beep, "Listening cue sound")
	fs.BoolVar(&cfg.Duck, "duck", cfg.Duck, "Lower other audio while speaking")
	fs.StringVar(&cfg.Voice, "voice", cfg.Voice, "Speech synthesis voice language")
	fs.StringVarP(&cfg.Socket, "socket", "s", cfg.Socket, "Control socket path")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	return cfg, nil
}
