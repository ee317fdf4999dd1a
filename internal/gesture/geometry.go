package gesture

// ResamplePoints is the fixed pattern length every template and captured
// gesture is resampled to before scoring. Changing it re-resamples the whole
// catalogue on the next build.
const ResamplePoints = 40

// Normalize maps a trajectory into the 0..1000 box: translate so the
// bounding-box minimum becomes the origin, then scale each axis
// independently. Width and height are clamped to at least 1 so perfectly
// horizontal or vertical strokes survive. Timestamps become relative to the
// first point. Integer math keeps the pipeline deterministic across
// platforms.
func Normalize(traj []Point) []Point {
	if len(traj) == 0 {
		return nil
	}
	if len(traj) < 2 {
		out := make([]Point, len(traj))
		copy(out, traj)
		return out
	}

	minX, maxX := traj[0].X, traj[0].X
	minY, maxY := traj[0].Y, traj[0].Y
	for _, p := range traj {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}

	w := max(1, maxX-minX)
	h := max(1, maxY-minY)

	out := make([]Point, 0, len(traj))
	for _, p := range traj {
		out = append(out, Point{
			X: (p.X - minX) * NormMax / w,
			Y: (p.Y - minY) * NormMax / h,
			T: p.T - traj[0].T,
		})
	}
	return out
}

// Resample replaces a trajectory with n points evenly spaced along its arc
// length, preserving the first and last points exactly. Coordinates and
// timestamps are linearly interpolated within the segment each new point
// falls on.
func Resample(traj []Point, n int) []Point {
	if len(traj) == 0 {
		return nil
	}
	if n < 2 || len(traj) < 2 {
		out := make([]Point, n)
		for i := range out {
			out[i] = traj[0]
		}
		if n == 0 {
			return nil
		}
		out[n-1] = traj[len(traj)-1]
		return out
	}

	var totalLength float64
	for i := 1; i < len(traj); i++ {
		totalLength += Dist(traj[i-1], traj[i])
	}
	if totalLength == 0 {
		// Degenerate: every point identical. Emit n copies.
		out := make([]Point, n)
		for i := range out {
			out[i] = traj[0]
		}
		return out
	}

	segmentLength := totalLength / float64(n-1)

	out := make([]Point, 0, n)
	out = append(out, traj[0])

	carry := 0.0 // distance accumulated along the walk since the last emitted point
	for i := 1; i < len(traj) && len(out) < n; i++ {
		dx := float64(traj[i].X - traj[i-1].X)
		dy := float64(traj[i].Y - traj[i-1].Y)
		dt := float64(int64(traj[i].T) - int64(traj[i-1].T))
		segDist := Dist(traj[i-1], traj[i])
		if segDist == 0 {
			continue
		}

		// Consumed fraction of the current segment; more than one resampled
		// point can fall on a single long segment.
		consumed := 0.0
		for carry+(segDist-consumed) >= segmentLength && len(out) < n {
			step := segmentLength - carry
			consumed += step
			ratio := consumed / segDist
			out = append(out, Point{
				X: traj[i-1].X + int(ratio*dx),
				Y: traj[i-1].Y + int(ratio*dy),
				T: traj[i-1].T + uint32(ratio*dt),
			})
			carry = 0
		}
		carry += segDist - consumed
	}

	// Rounding can leave the walk one short of n; pin the tail to the final
	// input point so endpoints are always preserved.
	for len(out) < n {
		out = append(out, traj[len(traj)-1])
	}
	out[n-1] = traj[len(traj)-1]
	return out
}

// Preprocess normalizes then resamples a raw trajectory into the canonical
// form the scorer compares: ResamplePoints points in the 0..1000 box.
func Preprocess(traj []Point) []Point {
	return Resample(Normalize(traj), ResamplePoints)
}
