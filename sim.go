package cpm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Simulation wires together the Sampler, Registry, Lattice, Engine and
// Scheduler, and drives the MCS loop on a dedicated worker goroutine. It is
// the only thing the renderer and cmd/embryosim talk to.
type Simulation struct {
	RunID string

	cfg       Config
	sampler   Sampler
	registry  *Registry
	lattice   *Lattice
	engine    *Engine
	scheduler *Scheduler
	divider   *Divider
	clock     *Clock
	logger    Logger

	done    atomic.Bool
	mcs     atomic.Int64
	started sync.Once
	wg      sync.WaitGroup
}

// NewSimulation builds a Simulation from cfg, creating and seeding the
// initial lattice state. logger may be nil, in which case diagnostics are
// discarded.
func NewSimulation(cfg Config, logger Logger) *Simulation {
	if logger == nil {
		logger = NewNopLogger()
	}

	sampler := NewRandSampler(cfg.Seed)
	registry := NewRegistry(sampler)

	sim := &Simulation{
		RunID:    uuid.NewString(),
		cfg:      cfg,
		sampler:  sampler,
		registry: registry,
		logger:   logger,
		clock:    NewClock(),
	}

	// InitCells must run before NewLattice: it creates the reserved ids
	// (BOUNDARY/EMPTYSPACE/FLUID) that the lattice's boundary ring and
	// medium sites are stamped with. SeedLattice then needs the Lattice to
	// exist before it can stamp the initial cell's seed square into it.
	sim.scheduler = NewScheduler(nil, registry, nil, sampler, logger)
	sim.scheduler.InitCells()

	sim.lattice = NewLattice(cfg.Width, cfg.Height, registry)
	sim.scheduler.SeedLattice(sim.lattice)

	sim.divider = NewDivider(sim.lattice, registry, sampler)
	sim.scheduler.divider = sim.divider

	sim.engine = NewEngine(sim.lattice, registry, sampler, cfg.J, cfg.BoltzTemp, cfg.Lambda, cfg.Sigma)

	return sim
}

// Pixels returns the live RGBA pixel buffer. Safe for a single external
// reader to copy at any time; tearing is tolerated for display purposes.
func (s *Simulation) Pixels() []byte { return s.lattice.Pixels() }

// Dimensions returns the lattice's boundary-inclusive pixel dimensions.
func (s *Simulation) Dimensions() (width, height int) {
	return s.lattice.BoundaryWidth, s.lattice.BoundaryHeight
}

// CurrentMCS reports the most recently completed Monte Carlo Step.
func (s *Simulation) CurrentMCS() int64 { return s.mcs.Load() }

// Done reports whether the simulation has been asked to stop (or has
// already stopped on its own after reaching Config.MaxMCS).
func (s *Simulation) Done() bool { return s.done.Load() }

// RequestStop cooperatively cancels the simulation: the worker observes it
// at the next copy attempt or MCS boundary and exits. Safe to call from any
// goroutine, any number of times; done only ever transitions false->true.
func (s *Simulation) RequestStop() { s.done.Store(true) }

// Run starts the worker goroutine and blocks until the simulation stops,
// either because it was asked to (RequestStop) or because it reached
// Config.MaxMCS. Run must be called exactly once.
func (s *Simulation) Run() {
	s.started.Do(func() {
		s.wg.Add(1)
		go s.workerLoop()
	})
	s.wg.Wait()
}

// RunAsync starts the worker goroutine without blocking. Callers that want
// to wait for completion should poll Done() or call Wait().
func (s *Simulation) RunAsync() {
	s.started.Do(func() {
		s.wg.Add(1)
		go s.workerLoop()
	})
}

// Wait blocks until the worker goroutine has exited.
func (s *Simulation) Wait() { s.wg.Wait() }

func (s *Simulation) workerLoop() {
	defer s.wg.Done()

	s.logger.Infof("run %s starting: w=%d h=%d seed=%d", s.RunID, s.cfg.Width, s.cfg.Height, s.cfg.Seed)

	for m := 0; m < s.cfg.MaxMCS; m++ {
		s.engine.StepMCS(s.done.Load)
		if s.done.Load() {
			break
		}

		s.registry.Tick()
		s.scheduler.StepMCS(m)
		s.mcs.Store(int64(m))

		s.clock.Tick()

		if s.cfg.Delay > 0 {
			time.Sleep(s.cfg.Delay)
		}

		if s.done.Load() {
			break
		}
	}

	s.done.Store(true)
	s.logger.Infof("done")
}
