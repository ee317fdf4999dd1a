package gesture

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// MatchThreshold is the minimum combined similarity for a successful
	// classification.
	MatchThreshold = 0.70

	// maxPointDistance is the diagonal of the normalized box, the worst
	// possible average point separation.
	maxPointDistance = 1414.0

	positionWeight  = 0.6
	directionWeight = 0.4
)

// Template is a named gesture pattern in canonical form: ResamplePoints
// points in the 0..1000 box. Templates are immutable once in the catalogue.
type Template struct {
	Name      string
	Pattern   []Point
	ImageFile string
	Custom    bool
}

// Similarity scores two preprocessed trajectories of identical length.
// The result is in [0,1], higher is better: 60% position (average
// point-to-point distance against the box diagonal) and 40% direction
// (average short-arc angle difference between corresponding segments
// against pi). The 60/40 split favours overall shape while still telling a
// clockwise circle from a counter-clockwise one.
func Similarity(a, b []Point) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	combined := positionWeight*positionSimilarity(a, b) + directionWeight*directionSimilarity(a, b)
	return math.Max(0, combined)
}

func positionSimilarity(a, b []Point) float64 {
	dists := make([]float64, len(a))
	for i := range a {
		dists[i] = Dist(a[i], b[i])
	}
	avg := floats.Sum(dists) / float64(len(a))
	return math.Max(0, 1-avg/maxPointDistance)
}

func directionSimilarity(a, b []Point) float64 {
	if len(a) < 2 {
		return 0
	}
	diffs := make([]float64, len(a)-1)
	for i := 0; i < len(a)-1; i++ {
		theta := math.Atan2(float64(a[i+1].Y-a[i].Y), float64(a[i+1].X-a[i].X))
		phi := math.Atan2(float64(b[i+1].Y-b[i].Y), float64(b[i+1].X-b[i].X))
		d := math.Abs(theta - phi)
		if d > math.Pi {
			d = 2*math.Pi - d // wrap to the shorter arc
		}
		diffs[i] = d
	}
	avg := floats.Sum(diffs) / float64(len(diffs))
	return math.Max(0, 1-avg/math.Pi)
}

// MatchResult reports the best-scoring template for a gesture.
type MatchResult struct {
	Name  string
	Score float64
}

// Match preprocesses a raw user trajectory and scores it against every
// template, returning the argmax. ok is false when the best score is below
// MatchThreshold. Ties break in catalogue order: the first template wins.
func Match(traj []Point, templates []Template) (MatchResult, bool) {
	user := Preprocess(traj)
	best := MatchResult{Name: "Unknown"}
	for _, t := range templates {
		if s := Similarity(user, t.Pattern); s > best.Score {
			best = MatchResult{Name: t.Name, Score: s}
		}
	}
	return best, best.Score >= MatchThreshold
}
