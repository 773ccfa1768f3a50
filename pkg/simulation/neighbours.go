package simulation

import (
	"math"
	"runtime"
	"slices"

	"github.com/lao-tseu-is-alive/go-flock3d/pkg/geometry"
	"golang.org/x/sync/errgroup"
)

const (
	StrategyBruteForce = "brute-force"
	StrategyGrid       = "grid"
	StrategyParallel   = "parallel"
)

// isKnownStrategy accepts the names NewNeighbourIndex understands; empty means brute force.
func isKnownStrategy(name string) bool {
	switch name {
	case "", StrategyBruteForce, StrategyGrid, StrategyParallel:
		return true
	}
	return false
}

// NeighbourIndex fills every boid's neighbour set with the indices of the
// boids within radius. The relation is symmetric and compared on squared
// distances. Neighbour sets are expected to be empty on entry.
type NeighbourIndex interface {
	FindNeighbours(boids []Boid, radius float64)
	Name() string
}

// NewNeighbourIndex returns the index implementing strategy.
func NewNeighbourIndex(strategy string, workers int) (NeighbourIndex, error) {
	switch strategy {
	case StrategyBruteForce, "":
		return BruteForce{}, nil
	case StrategyGrid:
		return NewGrid(), nil
	case StrategyParallel:
		return NewParallel(workers), nil
	default:
		return nil, configErrorf("unknown neighbour strategy %q", strategy)
	}
}

// ---------------------------------------------------------------------
// Brute force
// ---------------------------------------------------------------------

// BruteForce tests every unordered pair once.
type BruteForce struct{}

func (BruteForce) Name() string { return StrategyBruteForce }

func (BruteForce) FindNeighbours(boids []Boid, radius float64) {
	radiusSq := radius * radius
	for i := range boids {
		pos := boids[i].Position
		for j := i + 1; j < len(boids); j++ {
			if boids[j].Position.DistanceSquaredTo(pos) <= radiusSq {
				boids[i].AddNeighbour(j)
				boids[j].AddNeighbour(i)
			}
		}
	}
}

// ---------------------------------------------------------------------
// Uniform grid
// ---------------------------------------------------------------------

type cellKey struct {
	x, y, z int
}

// cellSlack widens grid cells past the radius so that rounding in the
// per-point floor(p/edge) cannot put two boids exactly radius apart two cells apart.
const cellSlack = 1e-9

// Grid buckets boids into cubic cells slightly larger than the search radius,
// so only pairs in the same or adjacent cells need a distance test.
// Buckets are truncated and refilled on every call; cells left empty by the
// previous call are dropped.
type Grid struct {
	cells map[cellKey][]int
}

func NewGrid() *Grid {
	return &Grid{cells: make(map[cellKey][]int)}
}

func (g *Grid) Name() string { return StrategyGrid }

func (g *Grid) cellOf(p geometry.Vector3D, cellSize float64) cellKey {
	return cellKey{
		x: int(math.Floor(p.X / cellSize)),
		y: int(math.Floor(p.Y / cellSize)),
		z: int(math.Floor(p.Z / cellSize)),
	}
}

// rebuild resets every occupied bucket to length 0 but keeps its capacity,
// deletes the ones nobody used last time, then sorts boids into cells.
// The map never holds more keys than twice the boid count.
func (g *Grid) rebuild(boids []Boid, cellSize float64) {
	for k, bucket := range g.cells {
		if len(bucket) == 0 {
			delete(g.cells, k)
			continue
		}
		g.cells[k] = bucket[:0]
	}
	for i := range boids {
		key := g.cellOf(boids[i].Position, cellSize)
		g.cells[key] = append(g.cells[key], i)
	}
}

func (g *Grid) FindNeighbours(boids []Boid, radius float64) {
	if radius <= 0 || len(boids) == 0 {
		return
	}
	radiusSq := radius * radius
	cellSize := radius * (1 + cellSlack)
	g.rebuild(boids, cellSize)

	for i := range boids {
		pos := boids[i].Position
		c := g.cellOf(pos, cellSize)

		// Iterate the 3x3x3 block around the boid's cell
		for x := c.x - 1; x <= c.x+1; x++ {
			for y := c.y - 1; y <= c.y+1; y++ {
				for z := c.z - 1; z <= c.z+1; z++ {
					for _, j := range g.cells[cellKey{x, y, z}] {
						// each pair once, from its lower index
						if j <= i {
							continue
						}
						if boids[j].Position.DistanceSquaredTo(pos) <= radiusSq {
							boids[i].AddNeighbour(j)
							boids[j].AddNeighbour(i)
						}
					}
				}
			}
		}
	}

	// cell visiting order is arbitrary; give every set the brute-force order
	for i := range boids {
		slices.Sort(boids[i].neighbours)
	}
}

// Len returns the number of non-empty cells of the last rebuild.
func (g *Grid) Len() int {
	n := 0
	for _, bucket := range g.cells {
		if len(bucket) > 0 {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------
// Parallel pairwise
// ---------------------------------------------------------------------

// Parallel spreads the pairwise test over worker goroutines. Pairs are packed
// in a triangular array of n(n-1)/2 lanes; each lane writes only its own slot,
// and a serial pass then appends the hits to both boids in i<j order.
type Parallel struct {
	Workers int
	mask    []bool
}

func NewParallel(workers int) *Parallel {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Parallel{Workers: workers}
}

func (p *Parallel) Name() string { return StrategyParallel }

// PairCount is the number of unordered pairs among n boids.
func PairCount(n int) int {
	return n * (n - 1) / 2
}

// pairAt inverts the triangular packing: lane k of the row-major (i, j>i)
// enumeration belongs to row i at column j.
func pairAt(k, n int) (int, int) {
	i := 0
	rowLen := n - 1
	for k >= rowLen {
		k -= rowLen
		i++
		rowLen--
	}
	return i, i + 1 + k
}

func (p *Parallel) FindNeighbours(boids []Boid, radius float64) {
	n := len(boids)
	total := PairCount(n)
	if total <= 0 {
		return
	}
	if cap(p.mask) < total {
		p.mask = make([]bool, total)
	}
	mask := p.mask[:total]
	radiusSq := radius * radius

	workers := max(p.Workers, 1)
	chunk := (total + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < total; start += chunk {
		end := min(start+chunk, total)
		g.Go(func() error {
			i, j := pairAt(start, n)
			for k := start; k < end; k++ {
				mask[k] = boids[i].Position.DistanceSquaredTo(boids[j].Position) <= radiusSq
				if j++; j == n {
					i++
					j = i + 1
				}
			}
			return nil
		})
	}
	_ = g.Wait() // lanes never fail

	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if mask[k] {
				boids[i].AddNeighbour(j)
				boids[j].AddNeighbour(i)
			}
			k++
		}
	}
}
