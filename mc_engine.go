package cpm

import "math"

// boltzmannFactor returns exp(-dH/t), the Metropolis acceptance probability
// for an energy increase of dH at temperature t.
func boltzmannFactor(dH, t float64) float64 {
	return math.Exp(-dH / t)
}

// JMatrix is a symmetric type-to-type contact energy matrix indexed by
// CellType, configured once at startup.
type JMatrix [7][7]float64

// Engine runs the Monte Carlo copy-attempt algorithm over a Lattice and
// Registry. It holds the Hamiltonian's tunable constants; everything else
// about simulation state lives in the Lattice/Registry it's given.
type Engine struct {
	lattice  *Lattice
	registry *Registry
	sampler  Sampler

	J           JMatrix
	Temperature float64 // Boltzmann temperature T
	Lambda      float64 // volume stiffness
	Sigma       float64 // surface stiffness; 0 disables the surface term
}

// NewEngine builds an Engine over lattice/registry/sampler with the given
// Hamiltonian constants.
func NewEngine(lattice *Lattice, registry *Registry, sampler Sampler, j JMatrix, temperature, lambda, sigma float64) *Engine {
	return &Engine{
		lattice:     lattice,
		registry:    registry,
		sampler:     sampler,
		J:           j,
		Temperature: temperature,
		Lambda:      lambda,
		Sigma:       sigma,
	}
}

// StepMCS runs one Monte Carlo Step: InteriorWidth*InteriorHeight copy
// attempts. stop is polled between attempts and, if it ever reports true,
// the step is abandoned immediately so the worker can exit without
// completing a partial MCS as if it were whole.
func (e *Engine) StepMCS(stop func() bool) {
	n := e.lattice.InteriorWidth * e.lattice.InteriorHeight
	for i := 0; i < n; i++ {
		if stop != nil && stop() {
			return
		}
		e.CopyAttempt()
	}
}

// CopyAttempt performs a single copy attempt: pick a random interior site
// and a random Moore neighbour, and, subject to the Metropolis acceptance
// rule, copy the site's label onto the neighbour. It returns whether the
// move was accepted.
func (e *Engine) CopyAttempt() bool {
	x := e.sampler.UInt(1, e.lattice.InteriorWidth)
	y := e.sampler.UInt(1, e.lattice.InteriorHeight)

	offs := moorOffsets[e.sampler.UInt(0, len(moorOffsets)-1)]
	nx, ny := x+offs[0], y+offs[1]

	if e.lattice.IsBoundary(nx, ny) {
		return false
	}

	srcId := e.lattice.Get(x, y)
	dstId := e.lattice.Get(nx, ny)
	if srcId == dstId {
		return false
	}

	dH := e.adhesionDelta(x, y, nx, ny) + e.volumeDelta(srcId, dstId)
	if e.Sigma != 0 {
		dH += e.surfaceDelta(nx, ny, srcId, dstId)
	}

	if dH > 0 && e.sampler.UProb() >= boltzmannFactor(dH, e.Temperature) {
		return false
	}

	e.lattice.SetLabel(nx, ny, srcId)
	return true
}

// adhesionDelta computes ΔH_adhesion for copying the label at (srcX,srcY)
// onto (dstX,dstY): the adhesion energy the destination neighbourhood would
// have under the source's label, minus what it has today.
func (e *Engine) adhesionDelta(srcX, srcY, dstX, dstY int) float64 {
	src := e.lattice.Get(srcX, srcY)
	dst := e.lattice.Get(dstX, dstY)
	srcType := e.registry.Type(src)
	dstType := e.registry.Type(dst)

	var before, after float64
	for _, off := range moorOffsets {
		nx, ny := dstX+off[0], dstY+off[1]
		n := e.lattice.Get(nx, ny)
		nType := e.registry.Type(n)
		if n != dst {
			before += e.J[dstType][nType]
		}
		if n != src {
			after += e.J[srcType][nType]
		}
	}
	return after - before
}

// volumeDelta computes ΔH_volume for copying srcId's label onto a site
// currently owned by dstId, excluding EMPTYSPACE from both terms and
// vetoing any move that would erase dstId entirely.
func (e *Engine) volumeDelta(srcId, dstId SuperCellId) float64 {
	if dstId != EmptySpaceId && e.registry.Volume(dstId)-1 == 0 {
		return HardVetoEnergy
	}

	var delta float64
	if srcId != EmptySpaceId {
		srcVol := float64(e.registry.Volume(srcId))
		srcTarget := float64(e.registry.TargetVolume(srcId))
		delta += sq(srcVol+1-srcTarget) - sq(srcVol-srcTarget)
	}
	if dstId != EmptySpaceId {
		dstVol := float64(e.registry.Volume(dstId))
		dstTarget := float64(e.registry.TargetVolume(dstId))
		delta += sq(dstVol-1-dstTarget) - sq(dstVol-dstTarget)
	}
	return e.Lambda * delta
}

// surfaceDelta computes the (disabled-by-default) ΔH_surface term, mirroring
// the volume term's shape but over Surface/TargetSurface. It is only invoked
// when Sigma != 0. Only the source and destination cells' perimeters change
// when (dstX,dstY) is relabelled: the site's own edges are re-counted against
// the new id, and each orthogonal neighbour already carrying srcId or dstId
// flips one edge. These are the same deltas Lattice.updateSurfaces applies
// on an accepted move, so the energy seen here matches the bookkept state.
func (e *Engine) surfaceDelta(dstX, dstY int, srcId, dstId SuperCellId) float64 {
	srcGain, dstGain := 0, 0
	for _, off := range orthoOffsets {
		m := e.lattice.Get(dstX+off[0], dstY+off[1])
		if m != srcId {
			srcGain++
		} else {
			srcGain--
		}
		if m != dstId {
			dstGain--
		} else {
			dstGain++
		}
	}

	var delta float64
	if srcId != EmptySpaceId {
		s := float64(e.registry.Surface(srcId))
		t := float64(e.registry.TargetSurface(srcId))
		delta += sq(s+float64(srcGain)-t) - sq(s-t)
	}
	if dstId != EmptySpaceId {
		s := float64(e.registry.Surface(dstId))
		t := float64(e.registry.TargetSurface(dstId))
		delta += sq(s+float64(dstGain)-t) - sq(s-t)
	}
	return e.Sigma * delta
}

func sq(v float64) float64 { return v * v }
