package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"vira/internal/ipc"
)

// ctlEnv holds the VIRA_* settings vira-ctl shares with the daemon.
type ctlEnv struct {
	Socket string `env:"VIRA_SOCKET" envDefault:"/tmp/vira.sock"`
}

func main() {
	defaults, err := env.ParseAs[ctlEnv]()
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse environment:", err)
		os.Exit(2)
	}

	if err := newRootCmd(defaults).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(defaults ctlEnv) *cobra.Command {
	var (
		socket  string
		timeout time.Duration
	)

	send := func(cmd *cobra.Command, msg ipc.ControlMessage) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		resp, err := ipc.Send(ctx, socket, msg)
		if err != nil {
			return fmt.Errorf("vira-daemon: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           "vira-ctl",
		Short:         "Control a running vira-daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&socket, "socket", "s", defaults.Socket, "Control socket path")
	rootCmd.PersistentFlags().DurationVarP(&timeout, "timeout", "t", time.Minute, "How long to wait for the daemon")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "trigger",
			Short: "Listen for one spoken command",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return send(cmd, ipc.ControlMessage{Cmd: ipc.CmdTrigger})
			},
		},
		&cobra.Command{
			Use:   "say <words...>",
			Short: "Handle a typed command",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(cmd, ipc.ControlMessage{Cmd: ipc.CmdSay, Text: strings.Join(args, " ")})
			},
		},
		&cobra.Command{
			Use:   "stop",
			Short: "Stop the assistant",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return send(cmd, ipc.ControlMessage{Cmd: ipc.CmdStop})
			},
		},
	)

	return rootCmd
}
