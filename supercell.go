package cpm

import "math"

// SuperCell is a single record in the Registry: a logical cell identity
// that zero or more lattice sites may carry.
type SuperCell struct {
	Type          CellType
	Colour        Colour
	Volume        int
	TargetVolume  int
	Surface       int
	TargetSurface int
	Generation    int
	MCS           int
	NextDiv       float64
}

// Registry is the process-wide table of SuperCell records, indexed densely
// by SuperCellId. It is explicitly constructed and explicitly passed to
// every collaborator that needs it — there is no package-level global
// table, and the Lattice never holds anything but the integer ids this
// Registry hands out.
type Registry struct {
	cells   []SuperCell
	sampler Sampler
}

// NewRegistry constructs an empty Registry. Reserved ids (BOUNDARY,
// EMPTYSPACE, FLUID) are not created here; the caller (typically the
// scheduler's Init stage) creates them first, in that order, so that
// BoundaryId/EmptySpaceId/FluidId land where expected.
func NewRegistry(sampler Sampler) *Registry {
	return &Registry{sampler: sampler}
}

// Create appends a new SuperCell record and returns its id. Reserved types
// (BOUNDARY, EMPTYSPACE, FLUID) get fixed colours; other types get a colour
// auto-generated in a biologically plausible palette. Either can be
// overridden by SetColour afterwards.
func (r *Registry) Create(t CellType, generation, targetVolume, targetSurface int) SuperCellId {
	id := SuperCellId(len(r.cells))
	r.cells = append(r.cells, SuperCell{
		Type:          t,
		Colour:        r.randomColourFor(t),
		TargetVolume:  targetVolume,
		TargetSurface: targetSurface,
		Generation:    generation,
		MCS:           0,
		NextDiv:       math.Inf(1),
	})
	return id
}

// CloneFrom appends a new record inheriting type, colour, generation, and
// targets from parentId, then recolours it so that daughter cells are
// visually distinguishable from the parent. It is the low-level primitive
// used by the division algorithms; it does not touch the parent's volume or
// any lattice state.
func (r *Registry) CloneFrom(parentId SuperCellId) (SuperCellId, error) {
	parent, err := r.get(parentId)
	if err != nil {
		return 0, err
	}
	child := *parent
	child.Volume = 0
	child.Surface = 0
	child.Colour = r.randomColourFor(parent.Type)
	child.MCS = 0
	child.NextDiv = math.Inf(1)
	id := SuperCellId(len(r.cells))
	r.cells = append(r.cells, child)
	return id, nil
}

func (r *Registry) get(id SuperCellId) (*SuperCell, error) {
	if id < 0 || int(id) >= len(r.cells) {
		return nil, &InvalidId{Id: id}
	}
	return &r.cells[id], nil
}

// Counter returns the exclusive upper bound of currently valid ids.
func (r *Registry) Counter() int { return len(r.cells) }

// IdsOfType returns every currently-registered id whose Type is t, in
// ascending id order. The scheduler uses this once per MCS per type of
// interest; the registry is small enough (hundreds to low thousands of
// cells) that a linear scan is simpler and fast enough compared to
// maintaining a secondary type index.
func (r *Registry) IdsOfType(t CellType) []SuperCellId {
	var out []SuperCellId
	for i, c := range r.cells {
		if c.Type == t {
			out = append(out, SuperCellId(i))
		}
	}
	return out
}

// Tick increments MCS on every live super-cell. Called once per completed
// Monte Carlo Step, before the scheduler inspects per-cell events.
func (r *Registry) Tick() {
	for i := range r.cells {
		r.cells[i].MCS++
	}
}

// --- getters/setters -------------------------------------------------

func (r *Registry) Type(id SuperCellId) CellType {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.Type
}

func (r *Registry) SetType(id SuperCellId, t CellType) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.Type = t
}

func (r *Registry) GetColour(id SuperCellId) Colour {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.Colour
}

func (r *Registry) SetColour(id SuperCellId, col Colour) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.Colour = col
}

func (r *Registry) Volume(id SuperCellId) int {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.Volume
}

// ChangeVolume adjusts a super-cell's bookkept volume by delta. It is the
// only way the Lattice is allowed to mutate volume.
func (r *Registry) ChangeVolume(id SuperCellId, delta int) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.Volume += delta
}

func (r *Registry) TargetVolume(id SuperCellId) int {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.TargetVolume
}

func (r *Registry) SetTargetVolume(id SuperCellId, v int) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.TargetVolume = v
}

func (r *Registry) Surface(id SuperCellId) int {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.Surface
}

func (r *Registry) SetSurface(id SuperCellId, s int) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.Surface = s
}

func (r *Registry) ChangeSurface(id SuperCellId, delta int) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.Surface += delta
}

func (r *Registry) TargetSurface(id SuperCellId) int {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.TargetSurface
}

func (r *Registry) SetTargetSurface(id SuperCellId, s int) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.TargetSurface = s
}

func (r *Registry) Generation(id SuperCellId) int {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.Generation
}

func (r *Registry) SetGeneration(id SuperCellId, g int) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.Generation = g
}

func (r *Registry) IncreaseGeneration(id SuperCellId) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.Generation++
}

func (r *Registry) MCS(id SuperCellId) int {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.MCS
}

func (r *Registry) SetMCS(id SuperCellId, mcs int) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.MCS = mcs
}

func (r *Registry) NextDiv(id SuperCellId) float64 {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	return c.NextDiv
}

func (r *Registry) SetNextDiv(id SuperCellId, mcs float64) {
	c, err := r.get(id)
	if err != nil {
		panic(err)
	}
	c.NextDiv = mcs
}

// randomColourFor produces a palette colour appropriate to t. Reserved
// types get fixed colours; biological types get a randomised but plausible
// hue.
func (r *Registry) randomColourFor(t CellType) Colour {
	switch t {
	case BOUNDARY:
		return Colour{255, 255, 255, 255}
	case EMPTYSPACE:
		return Colour{0, 0, 0, 255}
	case FLUID:
		return Colour{50, 0, 0, 255}
	default:
		return r.randomPlausibleColour(t)
	}
}

// randomPlausibleColour draws a base brightness from a per-type range and
// jitters each of R, G and B independently around it, so cells come out as
// near-grey tones: trophectoderm in a lighter band than ICM, without
// hard-coding any single colour.
func (r *Registry) randomPlausibleColour(t CellType) Colour {
	var lo, hi int
	switch t {
	case TROPHECTODERM:
		lo, hi = 170, 255 // light tones
	case ICM:
		lo, hi = 90, 170 // darker tones
	default:
		lo, hi = 120, 220 // generic morula tone
	}
	base := uint8(r.sampler.UInt(lo, hi))
	jitter := func() uint8 {
		v := int(base) + r.sampler.UInt(-20, 20)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return uint8(v)
	}
	return Colour{jitter(), jitter(), jitter(), 255}
}
