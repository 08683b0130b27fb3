// Command sabhost is a minimal demonstration host: it wires one engine,
// one audio backend and one host.Host together, starts a realtime
// performance, and tears it down again on SIGINT or after a fixed
// duration when run non-interactively.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/zotley/sabcore/engine"
	"github.com/zotley/sabcore/host"
	"github.com/zotley/sabcore/playstate"
)

func main() {
	var (
		backendName = pflag.String("backend", "oto", "audio backend: oto, malgo, or headless (headless builds only)")
		channels    = pflag.Int32("channels", 2, "output channel count")
		sampleRate  = pflag.Int32("sample-rate", 48000, "sample rate in Hz")
		hwBuffer    = pflag.Int32("hw-buffer", 4096, "hardware ring size, in frames per channel")
		swBuffer    = pflag.Int32("sw-buffer", 256, "software block size, in frames per channel")
		program     = pflag.String("program", "", "path to a Lua synthesis program; omitted runs the deterministic passthrough engine")
		duration    = pflag.Duration("duration", 0, "stop automatically after this long (0 runs until SIGINT)")
	)
	pflag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "sabhost",
	})

	if err := run(logger, *backendName, *channels, *sampleRate, *hwBuffer, *swBuffer, *program, *duration); err != nil {
		logger.Error("sabhost exited with error", "err", err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, backendName string, channels, sampleRate, hwBuffer, swBuffer int32, program string, duration time.Duration) error {
	be, err := newBackend(backendName, logger)
	if err != nil {
		return err
	}

	var eng engine.Engine
	if program != "" {
		src, err := os.ReadFile(program)
		if err != nil {
			return fmt.Errorf("sabhost: reading lua program: %w", err)
		}
		eng = engine.NewLuaSandbox(string(src))
	} else {
		eng = engine.NewPassthrough(sampleRate, swBuffer, channels, 0, 32768)
	}

	h := host.New(eng, be, logger)
	h.FileBridge = host.OSFileBridge{Root: "."}
	h.AddMessageCallback(func(msg string) { logger.Info("engine message", "msg", msg) })
	h.AddPlayStateCallback(func(s playstate.State) {
		logger.Info("play state changed", "state", s.String())
	})

	if err := h.Initialize(nil, hwBuffer, swBuffer); err != nil {
		return fmt.Errorf("sabhost: initialize: %w", err)
	}
	if err := h.Start(); err != nil {
		return fmt.Errorf("sabhost: start: %w", err)
	}
	logger.Info("performance started", "backend", backendName, "channels", channels, "sample_rate", sampleRate)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)
		select {
		case <-sig:
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	_ = g.Wait()

	logger.Info("stopping performance")
	if err := h.Stop(); err != nil {
		return fmt.Errorf("sabhost: stop: %w", err)
	}

	snap := h.StatusSnapshot()
	logger.Info("final status", "state", snap.PlayState.String(), "avail_out", snap.AvailOutBufs)
	return nil
}
