package cpm

// CellType classifies what a super-cell currently represents in the
// developmental program. Behaviour keyed on type lives in the scheduler, not
// in the type itself — cells are plain tagged data, not polymorphic actors.
type CellType int

const (
	BOUNDARY CellType = iota
	EMPTYSPACE
	FLUID
	GENERIC
	GENERIC_COMPACT
	TROPHECTODERM
	ICM
)

func (t CellType) String() string {
	switch t {
	case BOUNDARY:
		return "BOUNDARY"
	case EMPTYSPACE:
		return "EMPTYSPACE"
	case FLUID:
		return "FLUID"
	case GENERIC:
		return "GENERIC"
	case GENERIC_COMPACT:
		return "GENERIC_COMPACT"
	case TROPHECTODERM:
		return "TROPHECTODERM"
	case ICM:
		return "ICM"
	default:
		return "UNKNOWN"
	}
}

// SuperCellId is a dense, sequentially-assigned identity for a super-cell.
// Ids are never reused and never carry a pointer back into the registry.
type SuperCellId int

// Reserved ids. NewRegistry creates no records; Scheduler.InitCells creates
// these three first, in this order, and they stay bound for the whole run.
const (
	BoundaryId   SuperCellId = 0
	EmptySpaceId SuperCellId = 1
	FluidId      SuperCellId = 2
)

// Colour is a straightforward RGBA byte quadruple; it never represents
// premultiplied alpha.
type Colour struct {
	R, G, B, A uint8
}

// MaxGeneration gates morula division: a GENERIC cell of this generation or
// higher no longer divides during the morula stage.
const MaxGeneration = 4

// HardVetoEnergy is returned by the volume delta whenever a copy attempt
// would drop a non-medium super-cell's volume to zero. It is large enough
// that exp(-HardVetoEnergy/T) underflows to 0 for any reasonable
// temperature, so such a move is never accepted.
const HardVetoEnergy = 1e6
