// Command embryosim runs the cellular Potts embryogenesis model to a
// terminal stage (or until interrupted) and displays it live.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/blastocyst/cpm"
	"github.com/blastocyst/cpm/viewer"
)

func main() {
	cfg, err := cpm.ParseFlags(os.Args[1:])
	if err != nil {
		var cfgErr *cpm.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		panic(err)
	}

	logger := cpm.NewDefaultLogger("embryosim", cfg.Debug)
	sim := cpm.NewSimulation(cfg, logger)

	win, err := viewer.New(sim, cfg.PixelScale, "embryosim")
	if err != nil {
		logger.Errorf("viewer: %v", err)
		os.Exit(1)
	}
	defer win.Close()

	sim.RunAsync()

	frameBudget := time.Second / time.Duration(cfg.FPS)
	frameClock := cpm.NewClock()
	for !win.ShouldClose() && !sim.Done() {
		win.PollEvents()
		if err := win.Render(); err != nil {
			logger.Errorf("render: %v", err)
			break
		}
		if spent := frameClock.Tick(); spent < frameBudget {
			time.Sleep(frameBudget - spent)
			frameClock.Tick() // restart the frame timer after the sleep
		}
	}

	sim.RequestStop()
	sim.Wait()
}
