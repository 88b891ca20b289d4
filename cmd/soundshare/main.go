// Command soundshare runs one side of a SoundShare audio session: either
// streaming local system audio to connected receivers, or receiving a
// stream from a remote streamer.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/AbinavDWH/soundshare/internal/appstate"
	"github.com/AbinavDWH/soundshare/internal/logging"
	"github.com/AbinavDWH/soundshare/internal/session"
	"github.com/AbinavDWH/soundshare/internal/uisink"
)

func main() {
	role := flag.String("role", "", "session role: \"stream\" or \"receive\"")
	connect := flag.String("connect", "", "streamer IP address (required for -role=receive)")
	preset := flag.Int("preset", 2, "quality preset index, 0-6 (stream role only)")
	conditionPCM := flag.Bool("condition-pcm", false, "run captured audio through a noise gate and AGC before sending (stream role only)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	logger := logging.New(*logLevel)

	switch *role {
	case "stream":
		runStreamer(logger, *preset, *conditionPCM)
	case "receive":
		if *connect == "" {
			logger.Fatal("-connect is required for -role=receive")
		}
		runReceiver(logger, *connect)
	default:
		fmt.Fprintln(os.Stderr, "usage: soundshare -role=stream|receive [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}
}

func runStreamer(logger *log.Logger, preset int, conditionPCM bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := appstate.New()
	sink := uisink.NewLogging(logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		state.ShutdownRequested.Store(true)
		logger.Info("shutting down...")
		cancel()
	}()

	streamer, err := session.StartStreamer(preset, conditionPCM, state, sink, logger)
	if err != nil {
		logger.Fatal("failed to start streamer", "err", err)
	}

	<-ctx.Done()
	streamer.Stop()
}

func runReceiver(logger *log.Logger, serverIP string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state := appstate.New()
	sink := uisink.NewLogging(logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		state.ShutdownRequested.Store(true)
		logger.Info("shutting down...")
		cancel()
	}()

	receiver := session.StartReceiver(serverIP, state, sink, logger)

	<-ctx.Done()
	receiver.Stop()
}
