package cpm

import "math"

// Stage names the strictly sequential phases of the developmental program.
// The order is fixed by the biology being modelled, so Scheduler simply
// switches on it rather than registering per-stage handlers.
type Stage int

const (
	StageMorula Stage = iota
	StageCompaction
	StageDifferentiation
	StageBlastocyst
)

func (s Stage) String() string {
	switch s {
	case StageMorula:
		return "morula"
	case StageCompaction:
		return "compaction"
	case StageDifferentiation:
		return "differentiation"
	case StageBlastocyst:
		return "blastocyst"
	default:
		return "unknown"
	}
}

// Scheduler is pure policy: it reads Registry/Lattice state and issues
// division and relabel commands through the Divider and Lattice. It never
// runs a copy attempt itself; that's the Engine's job.
type Scheduler struct {
	lattice  *Lattice
	registry *Registry
	divider  *Divider
	sampler  Sampler
	logger   Logger

	stage            Stage
	compactionTarget float64
	differentiation  float64
	diffStartMCS     int
	genericSeedId    SuperCellId
	cavitySearchCap  int
}

// NewScheduler wires a Scheduler over the given collaborators. Call Init
// once before the first StepMCS.
func NewScheduler(lattice *Lattice, registry *Registry, divider *Divider, sampler Sampler, logger Logger) *Scheduler {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Scheduler{
		lattice:         lattice,
		registry:        registry,
		divider:         divider,
		sampler:         sampler,
		logger:          logger,
		stage:           StageMorula,
		cavitySearchCap: 10_000,
	}
}

// hour converts a quantity expressed in hours to MCS using MCSHourEst.
func hour(h float64) float64 { return h * MCSHourEst }

func (s *Scheduler) morulaDivisionDraw() float64 {
	return s.sampler.Normal(hour(12), hour(0.5))
}

func (s *Scheduler) compactionDraw() float64 {
	return s.sampler.Normal(hour(72), hour(0.5))
}

func (s *Scheduler) differentiationDraw() float64 {
	return s.sampler.Normal(hour(96), hour(1))
}

func (s *Scheduler) trophectodermDivisionDraw(m float64) float64 {
	growth := m / 250
	return s.sampler.Normal(hour(9)+growth*growth, hour(3))
}

func (s *Scheduler) icmDivisionDraw() float64 {
	return s.sampler.Normal(hour(12), hour(1))
}

// FluidTargetVolume computes V_fluid(t) for t MCS since differentiation
// began: max(50, 6400*(1-exp(-t/36h))).
func FluidTargetVolume(t float64) int {
	v := 6400 * (1 - math.Exp(-t/hour(36)))
	if v < 50 {
		v = 50
	}
	return int(v)
}

// InitCells creates the reserved super-cells (BOUNDARY, EMPTYSPACE, FLUID)
// and the initial GENERIC cell, and schedules the compaction/differentiation
// targets. It must run before any Lattice exists: the Lattice's boundary
// ring and medium sites are stamped with the ids this creates.
func (s *Scheduler) InitCells() {
	s.registry.Create(BOUNDARY, 0, 0, 0)
	s.registry.SetColour(BoundaryId, Colour{255, 255, 255, 255})
	s.registry.Create(EMPTYSPACE, 0, 0, 0)
	s.registry.SetColour(EmptySpaceId, Colour{0, 0, 0, 255})
	s.registry.Create(FLUID, 0, 0, 0)
	s.registry.SetColour(FluidId, Colour{50, 0, 0, 255})

	generic := s.registry.Create(GENERIC, 0, TargetInitCells, 0)
	s.genericSeedId = generic
	s.registry.SetNextDiv(generic, s.morulaDivisionDraw())

	s.compactionTarget = s.compactionDraw()
	s.differentiation = s.differentiationDraw()
}

// SeedLattice stamps the initial GENERIC cell's seed square at the centre of
// lattice. Call once, after the Lattice that owns the ids InitCells created
// has been constructed.
func (s *Scheduler) SeedLattice(lattice *Lattice) {
	s.lattice = lattice

	side := int(math.Sqrt(float64(TargetInitCells)))
	midX := lattice.InteriorWidth / 2
	midY := lattice.InteriorHeight / 2
	for x := midX - side/2; x < midX+side/2; x++ {
		for y := midY - side/2; y < midY+side/2; y++ {
			if x >= 1 && x <= lattice.InteriorWidth && y >= 1 && y <= lattice.InteriorHeight {
				lattice.SetLabel(x, y, s.genericSeedId)
			}
		}
	}
}

// StepMCS runs the scheduler's per-MCS pass for mcs (the MCS index just
// completed by the Engine). It dispatches strictly by current Stage.
//
// StageCompaction itself never lingers as a switch case: compact() is a
// one-shot relabelling that runs inline on the first MCS past the
// compaction target and advances s.stage straight to
// StageDifferentiation. There is no steady-state compaction behaviour to
// schedule.
func (s *Scheduler) StepMCS(mcs int) {
	switch s.stage {
	case StageMorula:
		s.stepMorula(mcs)
		if mcs >= int(s.compactionTarget) {
			s.compact(mcs)
		}
	case StageDifferentiation:
		if mcs >= int(s.differentiation) {
			s.differentiate(mcs)
		}
	case StageBlastocyst:
		s.stepBlastocyst(mcs)
	}
}

func (s *Scheduler) stepMorula(mcs int) {
	for _, id := range s.registry.IdsOfType(GENERIC) {
		if s.registry.Generation(id) >= MaxGeneration {
			continue
		}
		if float64(s.registry.MCS(id)) < s.registry.NextDiv(id) {
			continue
		}
		child, err := s.divider.Cleave(id, BorderConst)
		if err != nil {
			continue // TooSmall: skip this division, try again next MCS
		}
		s.registry.SetNextDiv(id, s.morulaDivisionDraw())
		s.registry.SetNextDiv(child, s.morulaDivisionDraw())
		s.logger.Infof("Division: %d at %d", id, mcs)
	}
}

func (s *Scheduler) compact(mcs int) {
	for _, id := range s.registry.IdsOfType(GENERIC) {
		s.registry.SetType(id, GENERIC_COMPACT)
	}
	s.stage = StageDifferentiation
	s.logger.Infof("Compaction at: %d", mcs)
}

func (s *Scheduler) differentiate(mcs int) {
	// First pass: GENERIC_COMPACT cells touching EMPTYSPACE become the
	// outer trophectoderm layer.
	for _, id := range s.registry.IdsOfType(GENERIC_COMPACT) {
		if !s.cellTouchesType(id, EMPTYSPACE) {
			continue
		}
		s.registry.SetType(id, TROPHECTODERM)
		s.registry.SetColour(id, s.registry.randomPlausibleColour(TROPHECTODERM))
		s.registry.SetMCS(id, 0)
		s.registry.SetNextDiv(id, s.trophectodermDivisionDraw(0))
	}

	// Second pass: whatever GENERIC_COMPACT remains is interior: ICM.
	for _, id := range s.registry.IdsOfType(GENERIC_COMPACT) {
		s.registry.SetType(id, ICM)
		s.registry.SetColour(id, s.registry.randomPlausibleColour(ICM))
		s.registry.SetMCS(id, 0)
		s.registry.SetNextDiv(id, s.icmDivisionDraw())
	}

	if err := s.seedCavity(); err != nil {
		s.logger.Errorf("cavity seeding failed: %v", err)
	}

	// The passes above recolour whole super-cells without relabelling their
	// sites, so the incremental per-move pixel updates never see them.
	s.lattice.FullPixelRefresh()

	s.diffStartMCS = mcs
	s.stage = StageBlastocyst
	s.logger.Infof("Differentiation at: %d", mcs)
}

// cellTouchesType reports whether any site of id has a Moore neighbour of
// type t.
func (s *Scheduler) cellTouchesType(id SuperCellId, t CellType) bool {
	for _, site := range s.lattice.Sites(id) {
		if len(s.lattice.NeighboursOfType(site[0], site[1], t)) > 0 {
			return true
		}
	}
	return false
}

// seedCavity samples interior sites until it finds one labelled ICM, then
// relabels that single site (not its whole super-cell) to FLUID.
func (s *Scheduler) seedCavity() error {
	for attempt := 0; attempt < s.cavitySearchCap; attempt++ {
		x := s.sampler.UInt(1, s.lattice.InteriorWidth)
		y := s.sampler.UInt(1, s.lattice.InteriorHeight)
		id := s.lattice.Get(x, y)
		if s.registry.Type(id) == ICM {
			s.registry.SetColour(FluidId, Colour{225, 220, 235, 255})
			s.lattice.SetLabel(x, y, FluidId)
			return nil
		}
	}
	return &NoFreeICMForCavity{Attempts: s.cavitySearchCap}
}

func (s *Scheduler) stepBlastocyst(mcs int) {
	t := float64(mcs - s.diffStartMCS)

	for _, id := range s.registry.IdsOfType(TROPHECTODERM) {
		if float64(s.registry.MCS(id)) < s.registry.NextDiv(id) {
			continue
		}
		if !s.cellTouchesType(id, EMPTYSPACE) {
			s.absorbIntoFluid(id)
			continue
		}
		child, err := s.divider.DivideRandom(id)
		if err != nil {
			continue
		}
		s.registry.SetNextDiv(id, s.trophectodermDivisionDraw(t))
		s.registry.SetNextDiv(child, s.trophectodermDivisionDraw(t))
		s.logger.Infof("Division: %d at %d", id, mcs)
	}

	for _, id := range s.registry.IdsOfType(ICM) {
		if float64(s.registry.MCS(id)) < s.registry.NextDiv(id) {
			continue
		}
		child, err := s.divider.DivideShort(id)
		if err != nil {
			continue
		}
		s.registry.SetNextDiv(id, s.icmDivisionDraw())
		s.registry.SetNextDiv(child, s.icmDivisionDraw())
		s.logger.Infof("Division: %d at %d", id, mcs)
	}

	s.registry.SetTargetVolume(FluidId, FluidTargetVolume(t))
}

// absorbIntoFluid relabels every site of a land-locked trophectoderm cell
// to FLUID: it has become part of the cavity instead of dividing outward.
func (s *Scheduler) absorbIntoFluid(id SuperCellId) {
	for _, site := range s.lattice.Sites(id) {
		s.lattice.SetLabel(site[0], site[1], FluidId)
	}
}

// CurrentStage reports the scheduler's current developmental stage, mainly
// for diagnostics and tests.
func (s *Scheduler) CurrentStage() Stage { return s.stage }
