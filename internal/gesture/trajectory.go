package gesture

import "github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"

const (
	// MaxTrajectoryPoints bounds the capture buffer. When full, the oldest
	// point is evicted so recording can continue through long gestures.
	MaxTrajectoryPoints = 1000

	// PointJumpThreshold is the maximum frame-to-frame distance, in sensor
	// pixels, before a point is treated as a reflection or stray IR source
	// and dropped.
	PointJumpThreshold = 40
)

// Trajectory is the live, bounded sequence of observed wand positions during
// a single recording. Created empty on entry to Recording, discarded on
// Idle, consumed on classification.
type Trajectory struct {
	points []Point
}

// NewTrajectory returns an empty trajectory.
func NewTrajectory() *Trajectory {
	return &Trajectory{points: make([]Point, 0, 64)}
}

// Len returns the number of captured points.
func (t *Trajectory) Len() int { return len(t.points) }

// Last returns the most recently accepted point. ok is false when empty.
func (t *Trajectory) Last() (Point, bool) {
	if len(t.points) == 0 {
		return Point{}, false
	}
	return t.points[len(t.points)-1], true
}

// Push appends p, evicting the oldest point when the buffer is full.
func (t *Trajectory) Push(p Point) {
	if len(t.points) >= MaxTrajectoryPoints {
		t.points = t.points[1:]
	}
	t.points = append(t.points, p)
}

// PushFiltered applies the outlier check before appending: if p jumps more
// than PointJumpThreshold pixels from the last accepted point it is
// rejected. Returns whether the point was accepted.
func (t *Trajectory) PushFiltered(p Point) bool {
	if last, ok := t.Last(); ok {
		if jump := Dist(last, p); jump > PointJumpThreshold {
			monitoring.Debugf("outlier rejected: jump=%.1f from (%d,%d) to (%d,%d)",
				jump, last.X, last.Y, p.X, p.Y)
			return false
		}
	}
	t.Push(p)
	return true
}

// Points returns the captured sequence. The slice is owned by the
// trajectory; callers must not mutate it.
func (t *Trajectory) Points() []Point { return t.points }

// BoundingBox returns the width and height of the smallest rectangle
// containing all points. Zero for an empty trajectory.
func (t *Trajectory) BoundingBox() (w, h int) {
	if len(t.points) == 0 {
		return 0, 0
	}
	minX, maxX := t.points[0].X, t.points[0].X
	minY, maxY := t.points[0].Y, t.points[0].Y
	for _, p := range t.points {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	return maxX - minX, maxY - minY
}

// PathLength returns the sum of consecutive point distances.
func (t *Trajectory) PathLength() float64 {
	return pathLength(t.points)
}

func pathLength(pts []Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += Dist(pts[i-1], pts[i])
	}
	return total
}
