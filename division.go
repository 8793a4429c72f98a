package cpm

import "math"

// Divider implements the three geometric split algorithms plus cleave. It
// is handed the Lattice and Registry it operates on; it holds no state of
// its own.
type Divider struct {
	lattice  *Lattice
	registry *Registry
	sampler  Sampler
}

// NewDivider builds a Divider over lattice/registry, drawing any random
// angles it needs from sampler.
func NewDivider(lattice *Lattice, registry *Registry, sampler Sampler) *Divider {
	return &Divider{lattice: lattice, registry: registry, sampler: sampler}
}

// beginSplit collects the sites of c, bails out with TooSmall if there
// aren't enough to split, and clones a child id. The caller is responsible
// for actually reassigning the chosen subset to the child.
func (d *Divider) beginSplit(c SuperCellId) ([][2]int, SuperCellId, error) {
	sites := d.lattice.Sites(c)
	if len(sites) <= 1 {
		return nil, 0, &TooSmall{Id: c}
	}
	// Bump the parent's generation before cloning, not after: CloneFrom
	// snapshots the parent's current Generation into the child, so the
	// child must see the post-increment value to come out equal to the
	// parent's (both daughters share the new generation).
	d.registry.IncreaseGeneration(c)
	child, err := d.registry.CloneFrom(c)
	if err != nil {
		return nil, 0, err
	}
	return sites, child, nil
}

func (d *Divider) finishSplit(parent, child SuperCellId, sites [][2]int, assignToChild func(x, y int) bool) {
	for _, s := range sites {
		if assignToChild(s[0], s[1]) {
			d.lattice.SetLabel(s[0], s[1], child)
		}
	}
	d.registry.SetMCS(parent, 0)
	d.registry.SetMCS(child, 0)
}

// DivideBBox splits c along the longer axis of its sites' bounding box, at
// the midpoint of that axis; sites strictly below the midpoint go to the
// child (ties stay with the parent).
func (d *Divider) DivideBBox(c SuperCellId) (SuperCellId, error) {
	sites, child, err := d.beginSplit(c)
	if err != nil {
		return 0, err
	}

	minX, minY := sites[0][0], sites[0][1]
	maxX, maxY := sites[0][0], sites[0][1]
	for _, s := range sites {
		if s[0] < minX {
			minX = s[0]
		}
		if s[0] > maxX {
			maxX = s[0]
		}
		if s[1] < minY {
			minY = s[1]
		}
		if s[1] > maxY {
			maxY = s[1]
		}
	}

	var splitOnX bool
	var mid int
	if (maxX - minX) > (maxY - minY) {
		splitOnX = true
		mid = (maxX + minX) / 2
	} else {
		splitOnX = false
		mid = (maxY + minY) / 2
	}

	d.finishSplit(c, child, sites, func(x, y int) bool {
		if splitOnX {
			return x < mid
		}
		return y < mid
	})
	return child, nil
}

// DivideRandom splits c along a line through the bounding-box centroid at a
// uniformly random angle in (-89, 89) degrees. Sites strictly above the
// line go to the child.
func (d *Divider) DivideRandom(c SuperCellId) (SuperCellId, error) {
	sites, child, err := d.beginSplit(c)
	if err != nil {
		return 0, err
	}

	minX, minY := sites[0][0], sites[0][1]
	maxX, maxY := sites[0][0], sites[0][1]
	for _, s := range sites {
		if s[0] < minX {
			minX = s[0]
		}
		if s[0] > maxX {
			maxX = s[0]
		}
		if s[1] < minY {
			minY = s[1]
		}
		if s[1] > maxY {
			maxY = s[1]
		}
	}
	xc := 0.5 * float64(minX+maxX)
	yc := 0.5 * float64(minY+maxY)

	angleDeg := float64(d.sampler.UInt(-89, 89))
	grad := math.Tan(angleDeg * math.Pi / 180.0)

	d.finishSplit(c, child, sites, func(x, y int) bool {
		return float64(y) > grad*(float64(x)-xc)+yc
	})
	return child, nil
}

// imageMoments computes the raw image moments of sites needed for
// DivideShort: m00, m10, m01, m20, m02, m11.
func imageMoments(sites [][2]int) (m00, m10, m01, m20, m02, m11 float64) {
	for _, s := range sites {
		x, y := float64(s[0]), float64(s[1])
		m00++
		m10 += x
		m01 += y
		m20 += x * x
		m02 += y * y
		m11 += x * y
	}
	return
}

// DivideShort splits c perpendicular to its long axis (i.e. across its
// short axis), derived from the eigenvectors of the covariance matrix of
// its sites' raw image moments. This is the biologically meaningful
// cleavage plane for an elongated cell.
func (d *Divider) DivideShort(c SuperCellId) (SuperCellId, error) {
	sites, child, err := d.beginSplit(c)
	if err != nil {
		return 0, err
	}

	m00, m10, m01, m20, m02, m11 := imageMoments(sites)
	xBar := m10 / m00
	yBar := m01 / m00

	mu20 := m20/m00 - xBar*xBar
	mu02 := m02/m00 - yBar*yBar
	mu11 := m11/m00 - xBar*yBar

	// Eigenvalues of the symmetric covariance matrix [[mu20,mu11][mu11,mu02]]
	// solve λ² - trace·λ + det = 0.
	covTrace := mu20 + mu02
	covDet := mu20*mu02 - mu11*mu11
	disc := covTrace*covTrace - 4*covDet
	if disc < 0 {
		disc = 0
	}
	sq := math.Sqrt(disc)
	eigA := (covTrace + sq) / 2
	eigB := (covTrace - sq) / 2
	smallEig := math.Min(eigA, eigB)

	// (dx,dy) is the eigenvector of the smaller eigenvalue: the short axis,
	// and therefore the direction the dividing line should run in. This is
	// a direction vector rather than a slope so a vertical short axis (the
	// degenerate mu11==0, mu20>mu02 case) is representable without a
	// division blowing up.
	var dx, dy float64
	switch {
	case mu11 != 0:
		dx, dy = mu11, smallEig-mu20
	case mu20 <= mu02:
		dx, dy = 1, 0
	default:
		dx, dy = 0, 1
	}

	d.finishSplit(c, child, sites, func(x, y int) bool {
		// dx*(y-yBar)-dy*(x-xBar) > 0 is y > g*(x-xBar)+yBar with g = dy/dx
		// only when dx > 0: multiplying that inequality through by a
		// negative dx must flip the comparison, so normalize by sign(dx) to
		// keep the predicate correct for either sign.
		return math.Copysign(1, dx)*(dx*(float64(y)-yBar)-dy*(float64(x)-xBar)) > 0
	})
	return child, nil
}

// Cleave divides c across its short axis, then halves both daughters'
// target volume and derives their target surface from
// floor(sqrt(newTargetVolume))*BORDER_CONST.
func (d *Divider) Cleave(c SuperCellId, borderConst float64) (SuperCellId, error) {
	child, err := d.DivideShort(c)
	if err != nil {
		return 0, err
	}

	newTarget := d.registry.TargetVolume(c) / 2
	newSurface := int(math.Floor(math.Sqrt(float64(newTarget)))) * int(borderConst)

	d.registry.SetTargetVolume(c, newTarget)
	d.registry.SetTargetVolume(child, newTarget)
	d.registry.SetTargetSurface(c, newSurface)
	d.registry.SetTargetSurface(child, newSurface)

	return child, nil
}
