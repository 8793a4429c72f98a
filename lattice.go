package cpm

// Lattice is a rectangular array of super-cell ids with a one-site boundary
// ring on all four sides. It owns no SuperCell data itself — only ids — and
// a parallel RGBA pixel buffer that a renderer (external to this module)
// may read at any time.
type Lattice struct {
	InteriorWidth  int
	InteriorHeight int
	BoundaryWidth  int
	BoundaryHeight int

	labels []SuperCellId
	pixels []byte

	registry *Registry
}

// NewLattice allocates a (w+2)x(h+2) grid, stamps the outer ring as
// BOUNDARY, and records the boundary/medium volumes against reg. reg must
// already have BoundaryId and EmptySpaceId created.
func NewLattice(w, h int, reg *Registry) *Lattice {
	bw, bh := w+2, h+2
	l := &Lattice{
		InteriorWidth:  w,
		InteriorHeight: h,
		BoundaryWidth:  bw,
		BoundaryHeight: bh,
		labels:         make([]SuperCellId, bw*bh),
		pixels:         make([]byte, bw*bh*4),
		registry:       reg,
	}
	for i := range l.labels {
		l.labels[i] = EmptySpaceId
	}
	for x := 0; x < bw; x++ {
		l.labels[l.index(x, 0)] = BoundaryId
		l.labels[l.index(x, bh-1)] = BoundaryId
	}
	for y := 0; y < bh; y++ {
		l.labels[l.index(0, y)] = BoundaryId
		l.labels[l.index(bw-1, y)] = BoundaryId
	}
	interior := w * h
	reg.ChangeVolume(EmptySpaceId, interior)
	reg.ChangeVolume(BoundaryId, bw*bh-interior)
	l.FullPerimeterRefresh()
	l.fullPixelRefresh()
	return l
}

func (l *Lattice) index(x, y int) int { return y*l.BoundaryWidth + x }

// InBounds reports whether (x,y) addresses a valid lattice site, boundary
// ring included.
func (l *Lattice) InBounds(x, y int) bool {
	return x >= 0 && x < l.BoundaryWidth && y >= 0 && y < l.BoundaryHeight
}

// Get returns the super-cell id currently labelling (x,y).
func (l *Lattice) Get(x, y int) SuperCellId {
	return l.labels[l.index(x, y)]
}

// IsBoundary reports whether (x,y) lies on the immutable outer ring.
func (l *Lattice) IsBoundary(x, y int) bool {
	return x == 0 || y == 0 || x == l.BoundaryWidth-1 || y == l.BoundaryHeight-1
}

// SetLabel relabels (x,y), adjusts the old and new super-cells' bookkept
// volume, and refreshes that site's pixel. Callers must never target a
// boundary site.
func (l *Lattice) SetLabel(x, y int, id SuperCellId) {
	if l.IsBoundary(x, y) {
		panic("cpm: SetLabel called on a boundary site")
	}
	i := l.index(x, y)
	old := l.labels[i]
	if old == id {
		return
	}
	l.registry.ChangeVolume(old, -1)
	l.registry.ChangeVolume(id, 1)
	l.labels[i] = id
	l.updateSurfaces(x, y, old, id)
	l.refreshPixel(x, y)
}

// orthoOffsets is the von Neumann neighbourhood used for perimeter counting.
var orthoOffsets = [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

// SitePerimeter counts how many of (x,y)'s four orthogonal neighbours carry
// a different super-cell id than (x,y) itself.
func (l *Lattice) SitePerimeter(x, y int) int {
	id := l.Get(x, y)
	n := 0
	for _, off := range orthoOffsets {
		if l.Get(x+off[0], y+off[1]) != id {
			n++
		}
	}
	return n
}

// updateSurfaces applies the local perimeter change of relabelling (x,y)
// from oldId to newId: the site's own contribution is re-counted against the
// new id, and each interior orthogonal neighbour's edge toward this site
// flips with the new comparison. Ring neighbours contribute to the site's
// own count but carry no perimeter of their own.
func (l *Lattice) updateSurfaces(x, y int, oldId, newId SuperCellId) {
	for _, off := range orthoOffsets {
		nx, ny := x+off[0], y+off[1]
		m := l.Get(nx, ny)
		if m != oldId {
			l.registry.ChangeSurface(oldId, -1)
		} else if !l.IsBoundary(nx, ny) {
			l.registry.ChangeSurface(m, 1)
		}
		if m != newId {
			l.registry.ChangeSurface(newId, 1)
		} else if !l.IsBoundary(nx, ny) {
			l.registry.ChangeSurface(m, -1)
		}
	}
}

// FullPerimeterRefresh recomputes every super-cell's Surface from scratch as
// the sum of its sites' perimeters. SetLabel keeps surfaces current
// incrementally; this exists for bulk verification and for callers that
// bypass SetLabel during construction.
func (l *Lattice) FullPerimeterRefresh() {
	for id := 0; id < l.registry.Counter(); id++ {
		l.registry.SetSurface(SuperCellId(id), 0)
	}
	for y := 1; y <= l.InteriorHeight; y++ {
		for x := 1; x <= l.InteriorWidth; x++ {
			l.registry.ChangeSurface(l.Get(x, y), l.SitePerimeter(x, y))
		}
	}
}

// moorOffsets enumerates the eight Moore-neighbourhood offsets in a fixed,
// stable order.
var moorOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// NeighboursMoore returns the coordinates of the eight neighbours of
// (x,y), in the fixed order used throughout this package.
func (l *Lattice) NeighboursMoore(x, y int) [8][2]int {
	var out [8][2]int
	for i, off := range moorOffsets {
		out[i] = [2]int{x + off[0], y + off[1]}
	}
	return out
}

// NeighboursOfType returns the subset of (x,y)'s Moore neighbours whose
// super-cell is of type t.
func (l *Lattice) NeighboursOfType(x, y int, t CellType) [][2]int {
	var out [][2]int
	for _, off := range moorOffsets {
		nx, ny := x+off[0], y+off[1]
		if l.registry.Type(l.Get(nx, ny)) == t {
			out = append(out, [2]int{nx, ny})
		}
	}
	return out
}

// getNeighboursCoords filters the Moore neighbourhood by type, but tests the
// type of the single site at (row-1, col-1) rather than each offset
// position, so all eight candidates pass or fail the filter together.
//
// Deprecated: broken as described; nothing calls it. Use NeighboursOfType.
func (l *Lattice) getNeighboursCoords(row, col int, t CellType) [][2]int {
	var out [][2]int
	if !l.InBounds(row-1, col-1) {
		return out
	}
	probe := l.registry.Type(l.Get(row-1, col-1))
	for _, off := range moorOffsets {
		if probe == t {
			out = append(out, [2]int{row + off[0], col + off[1]})
		}
	}
	return out
}

// fullPixelRefresh rewrites every pixel from the current labels and their
// super-cells' colours.
func (l *Lattice) fullPixelRefresh() {
	for y := 0; y < l.BoundaryHeight; y++ {
		for x := 0; x < l.BoundaryWidth; x++ {
			l.refreshPixel(x, y)
		}
	}
}

// FullPixelRefresh is the exported form. The scheduler calls it after
// differentiation, which recolours whole super-cells without relabelling
// their sites.
func (l *Lattice) FullPixelRefresh() { l.fullPixelRefresh() }

// refreshPixel writes the four bytes at (x,y) from its label's colour.
// Channel order is fixed as R,G,B,A, the layout image.RGBA expects.
func (l *Lattice) refreshPixel(x, y int) {
	col := l.registry.GetColour(l.Get(x, y))
	o := l.index(x, y) * 4
	l.pixels[o+0] = col.R
	l.pixels[o+1] = col.G
	l.pixels[o+2] = col.B
	l.pixels[o+3] = col.A
}

// Pixels returns the live RGBA buffer. It is safe for a single external
// reader to copy this slice at any time; tearing across a concurrent write
// is tolerated, since the buffer only ever feeds the display.
func (l *Lattice) Pixels() []byte { return l.pixels }

// Sites returns every interior coordinate currently labelled id. It is an
// O(W*H) scan, called by division geometry and by the scheduler's
// land-locked check and fluid absorption, only for cells due to divide or
// being differentiated.
func (l *Lattice) Sites(id SuperCellId) [][2]int {
	var out [][2]int
	for y := 1; y <= l.InteriorHeight; y++ {
		for x := 1; x <= l.InteriorWidth; x++ {
			if l.Get(x, y) == id {
				out = append(out, [2]int{x, y})
			}
		}
	}
	return out
}
