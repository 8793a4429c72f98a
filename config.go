package cpm

import (
	"flag"
	"fmt"
	"time"
)

// MCSHourEst is the number of MCS treated as equivalent to one hour of
// developmental time, used to express every stage distribution below in
// human terms.
const MCSHourEst = 500

// BorderConst scales a super-cell's target surface derived from its target
// volume at cleave time (targetSurface = floor(sqrt(targetVolume)) *
// BorderConst).
const BorderConst = 4.0

// TargetInitCells is the initial GENERIC super-cell's target volume. The
// seed square stamped at Init has side floor(sqrt(TargetInitCells)) = 56,
// so it covers 3136 sites when the lattice is large enough to hold it.
const TargetInitCells = 3200

// Config holds every startup option recognised by the simulator, plus the
// embedded constants that parametrise the Hamiltonian and the
// developmental scheduler.
type Config struct {
	MaxMCS     int
	PixelScale int
	Width      int
	Height     int
	Delay      time.Duration
	FPS        int
	Seed       int64
	Debug      bool

	BoltzTemp float64
	Lambda    float64
	Sigma     float64
	J         JMatrix
}

// DefaultConfig returns the baseline configuration: a 150x150 interior
// lattice, 6 simulated days, and a zero-valued (pure volume-constraint)
// adhesion matrix.
func DefaultConfig() Config {
	return Config{
		MaxMCS:     6 * 24 * MCSHourEst,
		PixelScale: 4,
		Width:      150,
		Height:     150,
		Delay:      0,
		FPS:        30,
		Seed:       time.Now().UnixNano(),
		BoltzTemp:  10.0,
		Lambda:     5.0,
		Sigma:      0.0,
	}
}

// ParseFlags parses args (typically os.Args[1:]) against a fresh FlagSet,
// seeded from DefaultConfig, and validates the result. It never touches the
// process-global flag.CommandLine, so it is safe to call repeatedly in
// tests.
func ParseFlags(args []string) (Config, error) {
	cfg := DefaultConfig()

	fs := flag.NewFlagSet("embryosim", flag.ContinueOnError)
	fs.IntVar(&cfg.MaxMCS, "maxMCS", cfg.MaxMCS, "simulation budget in Monte Carlo Steps")
	fs.IntVar(&cfg.PixelScale, "pixelScale", cfg.PixelScale, "pixels per lattice site")
	fs.IntVar(&cfg.Width, "width", cfg.Width, "interior lattice width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "interior lattice height")
	delayMs := fs.Int("delay", 0, "artificial per-MCS sleep, in milliseconds")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "renderer refresh cap")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "sampler seed; defaults to a time-derived value")
	fs.BoolVar(&cfg.Debug, "debug", false, "enable debug-level diagnostics")

	if err := fs.Parse(args); err != nil {
		return Config{}, &ConfigError{Cause: err}
	}
	cfg.Delay = time.Duration(*delayMs) * time.Millisecond

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configuration values that would make the simulation
// meaningless or panic downstream.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0:
		return &ConfigError{Cause: fmt.Errorf("width must be positive, got %d", c.Width)}
	case c.Height <= 0:
		return &ConfigError{Cause: fmt.Errorf("height must be positive, got %d", c.Height)}
	case c.PixelScale <= 0:
		return &ConfigError{Cause: fmt.Errorf("pixelScale must be positive, got %d", c.PixelScale)}
	case c.FPS <= 0:
		return &ConfigError{Cause: fmt.Errorf("fps must be positive, got %d", c.FPS)}
	case c.Delay < 0:
		return &ConfigError{Cause: fmt.Errorf("delay must not be negative, got %v", c.Delay)}
	case c.MaxMCS <= 0:
		return &ConfigError{Cause: fmt.Errorf("maxMCS must be positive, got %d", c.MaxMCS)}
	}
	return nil
}
