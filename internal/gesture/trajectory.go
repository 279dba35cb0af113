package gesture

import "time"

// TrajectoryPoint is one wrist observation.
type TrajectoryPoint struct {
	X, Y float64
	Time time.Time
}

// Trajectory is a time-windowed buffer of wrist positions.
// It holds only points younger than the window passed to the last Add.
// Not safe for concurrent use.
type Trajectory struct {
	points []TrajectoryPoint
}

// NewTrajectory creates an empty trajectory.
func NewTrajectory() *Trajectory {
	return &Trajectory{points: make([]TrajectoryPoint, 0, 32)}
}

// Add appends p and evicts every point whose age relative to p is not below window.
func (tr *Trajectory) Add(p TrajectoryPoint, window time.Duration) {
	tr.points = append(tr.points, p)

	keep := 0
	for keep < len(tr.points) && p.Time.Sub(tr.points[keep].Time) >= window {
		keep++
	}
	if keep > 0 {
		n := copy(tr.points, tr.points[keep:])
		tr.points = tr.points[:n]
	}
}

// Len returns the number of live points.
func (tr *Trajectory) Len() int {
	return len(tr.points)
}

// First returns the oldest live point.
func (tr *Trajectory) First() (TrajectoryPoint, bool) {
	if len(tr.points) == 0 {
		return TrajectoryPoint{}, false
	}
	return tr.points[0], true
}

// Last returns the newest point.
func (tr *Trajectory) Last() (TrajectoryPoint, bool) {
	if len(tr.points) == 0 {
		return TrajectoryPoint{}, false
	}
	return tr.points[len(tr.points)-1], true
}

// RecentHorizontalSpan returns |last.X - first.X| over the newest n points,
// or 0 when fewer than n points are held.
func (tr *Trajectory) RecentHorizontalSpan(n int) float64 {
	if n < 2 || len(tr.points) < n {
		return 0
	}
	recent := tr.points[len(tr.points)-n:]
	dx := recent[len(recent)-1].X - recent[0].X
	if dx < 0 {
		dx = -dx
	}
	return dx
}

// Clear drops every point.
func (tr *Trajectory) Clear() {
	tr.points = tr.points[:0]
}
