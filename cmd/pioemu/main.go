// Command pioemu wires two pio.Block instances, their MMR facades, one
// shared membus.AddressBus, and the bridge.Server together, then runs a
// free-running master clock until interrupted.
//
// Grounded on the teacher's overall shape (a thin driver over the pio
// package's exported API) generalized from a single hardware PIO to two
// in-process emulated blocks plus the TCP surface spec.md §4.K adds.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dannystaple/rp2040pio-emulator/bridge"
	"github.com/dannystaple/rp2040pio-emulator/internal/config"
	"github.com/dannystaple/rp2040pio-emulator/membus"
	"github.com/dannystaple/rp2040pio-emulator/mmr"
	"github.com/dannystaple/rp2040pio-emulator/pio"
)

// Facade base addresses: two PIO blocks, each getting a datasheet-shaped
// PIOFacade and an emulator-only ExtendedFacade, each facade occupying
// its own 16KB alias window (spec.md §6's "bits above 13 are the facade
// base" is per-facade-local; which bases correspond to which PIO/window
// is an internal wiring choice, not something spec.md pins down).
const (
	pio0Base     = 0x50200000
	pio0ExtBase  = pio0Base + 0x4000
	pio1Base     = 0x50300000
	pio1ExtBase  = pio1Base + 0x4000
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("pioemu: failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	pio0 := pio.NewBlock()
	pio1 := pio.NewBlock()

	bus := membus.NewAddressBus()
	bus.Register(mmr.NewPIOFacade(pio0, pio0Base, "PIO0"))
	bus.Register(mmr.NewExtendedFacade(pio0, pio0ExtBase, "PIO0-EXT"))
	bus.Register(mmr.NewPIOFacade(pio1, pio1Base, "PIO1"))
	bus.Register(mmr.NewExtendedFacade(pio1, pio1ExtBase, "PIO1-EXT"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := bridge.NewServer(bus, logger)
	go func() {
		if err := server.ListenAndServe(ctx, cfg.Bridge.Addr); err != nil {
			logger.Error("pioemu: bridge server stopped", "error", err)
		}
	}()
	logger.Info("pioemu: bridge listening", "addr", cfg.Bridge.Addr)

	runClock(ctx, logger, cfg.Clock.PeriodMicros, pio0, pio1)
}

// runClock drives both blocks' master clock in free-running mode until
// ctx is canceled (spec.md §4.A FreeRunning).
func runClock(ctx context.Context, logger *slog.Logger, periodMicros int64, blocks ...*pio.Block) {
	if periodMicros <= 0 {
		periodMicros = 1000
	}
	ticker := time.NewTicker(time.Duration(periodMicros) * time.Microsecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("pioemu: shutting down")
			return
		case <-ticker.C:
			for _, b := range blocks {
				b.Tick()
			}
		}
	}
}
