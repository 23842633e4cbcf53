package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"delta/internal/ipc"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: delta-ctl [flags] <command> [arg]

commands:
  start          begin listening
  stop           stop listening
  status         show assistant status
  say <text>     inject text as if it had been heard
  hear <file>    transcribe an audio file and inject it
  logout         end the server session

flags:
`)
	cli.PrintDefaults()
}

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	timeout := cli.DurationP("timeout", "t", 2*time.Minute, "Request timeout")
	cli.Usage = usage
	cli.Parse()

	if cli.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	req := ipc.Request{Op: cli.Arg(0), Arg: strings.Join(cli.Args()[1:], " ")}
	if req.Op == ipc.OpHear && req.Arg != "" {
		if abs, err := filepath.Abs(req.Arg); err == nil {
			req.Arg = abs
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := ipc.Send(ctx, *socket, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "delta-ctl:", err)
		os.Exit(1)
	}

	switch {
	case resp.Snapshot != nil:
		s := resp.Snapshot
		fmt.Printf("status:    %s (%s)\n", s.Status.Label, s.Status.State)
		fmt.Printf("mode:      %s\n", s.Status.Mode)
		fmt.Printf("busy:      %t\n", s.Busy)
		fmt.Printf("listening: %t\n", s.Listening)
	case resp.Text != "":
		fmt.Println(resp.Text)
	default:
		fmt.Println("ok")
	}
}
