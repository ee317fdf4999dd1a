package gesture

import (
	"time"

	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
	"github.com/FutilityDesigns/Glyph-Reader/internal/timeutil"
)

// Trajectory validation applied before classification, in order.
const (
	// MinTrajectoryPoints rejects gestures with too few captured frames.
	MinTrajectoryPoints = 50

	// MinBoundingBoxSize rejects gestures whose bounding box is smaller than
	// this in both dimensions, in sensor pixels.
	MinBoundingBoxSize = 200

	// MinTotalMovementPx rejects gestures whose total path length does not
	// exceed this, in sensor pixels.
	MinTotalMovementPx = 50
)

// StateKind enumerates the tracking states.
type StateKind int

const (
	StateIdle StateKind = iota
	StateReady
	StateRecording
)

func (s StateKind) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateRecording:
		return "recording"
	}
	return "unknown"
}

// FeedbackKind enumerates the user-visible events the machine emits. The
// machine never touches outputs directly; the dispatcher maps these onto
// LEDs, display, and audio.
type FeedbackKind int

const (
	feedbackNone FeedbackKind = iota

	// FeedbackDetected fires on Idle->Ready: IR seen, hold still.
	FeedbackDetected

	// FeedbackReady fires when stillness is achieved: move to begin casting.
	FeedbackReady

	// FeedbackRecording fires on Ready->Recording.
	FeedbackRecording

	// FeedbackIdle fires whenever tracking resets without a gesture outcome.
	FeedbackIdle

	// FeedbackTimeout fires when a gesture exceeds the gesture timeout.
	FeedbackTimeout

	// FeedbackTooShort, FeedbackTooSmall, and FeedbackNoMotion report the
	// trajectory rejection checks.
	FeedbackTooShort
	FeedbackTooSmall
	FeedbackNoMotion

	// FeedbackPatternCaptured fires instead of classification while the
	// machine is in record mode; Pattern carries the preprocessed gesture.
	FeedbackPatternCaptured
)

// Feedback is one event emitted by the machine.
type Feedback struct {
	Kind    FeedbackKind
	Pattern []Point // set for FeedbackPatternCaptured
}

// Handler receives machine output. Gesture is called with the raw validated
// trajectory; classification and acting on the result belong to the
// dispatcher, which is the only collaborator the machine knows.
type Handler interface {
	Feedback(fb Feedback)
	Gesture(points []Point)
}

// Tuning carries the user-adjustable thresholds read from the preference
// store. Distances are sensor pixels.
type Tuning struct {
	MovementThreshold  int
	StillnessThreshold int
	ReadyStillnessTime time.Duration
	GestureTimeout     time.Duration
	IRLossTimeout      time.Duration
}

// Machine is the gesture tracking state machine. It is single-threaded:
// exactly one instance exists and all frames are fed from the sensor loop in
// arrival order. Every transition leaves it in a defined state; nothing
// raises.
type Machine struct {
	clock   timeutil.Clock
	tuning  Tuning
	handler Handler

	// Trail, when set, receives each valid point in display space so the
	// screen can draw the live stroke. visible=false clears the trail.
	Trail func(x, y int, visible bool)

	state      StateKind
	anchor     Point
	anchorAt   time.Time // clock time the anchor was (re)established
	readySince time.Time
	stable     bool

	traj     *Trajectory
	started  time.Time
	lastMove time.Time

	irLostAt   time.Time // zero while the point is visible
	recordMode bool
}

// NewMachine returns an idle machine.
func NewMachine(clock timeutil.Clock, tuning Tuning, handler Handler) *Machine {
	return &Machine{clock: clock, tuning: tuning, handler: handler}
}

// State returns the current tracking state.
func (m *Machine) State() StateKind { return m.state }

// Tracking reports whether the sensor loop should poll at the fast rate.
func (m *Machine) Tracking() bool {
	return m.state == StateReady || m.state == StateRecording
}

// SetTuning replaces the thresholds; takes effect on the next frame.
func (m *Machine) SetTuning(t Tuning) { m.tuning = t }

// SetRecordMode switches gesture completion between classification and
// pattern capture (custom spell recording).
func (m *Machine) SetRecordMode(on bool) { m.recordMode = on }

// Observe processes one sensor poll. p is nil when the frame held no valid
// IR point. Timeout expiry is detected here as well, so Observe must be
// called every loop iteration even without a point.
func (m *Machine) Observe(p *Point) {
	if p != nil {
		m.irLostAt = time.Time{}
		m.observePoint(*p)
		return
	}
	m.observeAbsence()
}

func (m *Machine) observePoint(p Point) {
	now := m.clock.Now()

	if m.Trail != nil && m.state != StateIdle {
		m.Trail(ToDisplay(p.X), ToDisplay(p.Y), true)
	}

	switch m.state {
	case StateIdle:
		m.anchor = p
		m.anchorAt = now
		m.readySince = now
		m.stable = false
		m.state = StateReady
		monitoring.Debugf("state: IR detected (hold still to begin)")
		m.handler.Feedback(Feedback{Kind: FeedbackDetected})

	case StateReady:
		if m.stable {
			if Dist(p, m.anchor) >= float64(m.tuning.MovementThreshold) {
				// Moved off the stable position: the gesture starts at the
				// anchor, which becomes the first captured point.
				m.traj = NewTrajectory()
				m.traj.Push(m.anchor)
				m.traj.Push(p)
				m.started = m.anchorAt
				m.lastMove = now
				m.state = StateRecording
				monitoring.Debugf("state: tracking started from (%d,%d)", m.anchor.X, m.anchor.Y)
				m.handler.Feedback(Feedback{Kind: FeedbackRecording})
			}
		} else {
			drift := Dist(p, m.anchor)
			if drift < float64(m.tuning.StillnessThreshold) {
				// Still stable; smooth the anchor in place.
				m.anchor.X = p.X
				m.anchor.Y = p.Y
				if now.Sub(m.readySince) >= m.tuning.ReadyStillnessTime {
					m.stable = true
					monitoring.Debugf("state: ready to track")
					m.handler.Feedback(Feedback{Kind: FeedbackReady})
				}
			} else {
				// Drifted before stillness was achieved; restart the timer at
				// the new position.
				m.anchor = p
				m.anchorAt = now
				m.readySince = now
			}
		}
		if now.Sub(m.readySince) > m.tuning.GestureTimeout {
			monitoring.Debugf("state: ready timeout")
			m.toIdle(FeedbackIdle)
		}

	case StateRecording:
		if accepted := m.traj.PushFiltered(p); accepted {
			if m.movedSinceLast(p) {
				m.lastMove = now
			}
		}
		if now.Sub(m.started) > m.tuning.GestureTimeout {
			monitoring.Debugf("state: gesture timeout")
			m.toIdle(FeedbackTimeout)
		}
	}
}

// movedSinceLast reports whether p moved at least MovementThreshold from
// the previously accepted point (p itself is already appended).
func (m *Machine) movedSinceLast(p Point) bool {
	pts := m.traj.Points()
	if len(pts) < 2 {
		return false
	}
	return Dist(pts[len(pts)-2], p) >= float64(m.tuning.MovementThreshold)
}

func (m *Machine) observeAbsence() {
	now := m.clock.Now()
	if m.state == StateIdle {
		return
	}
	if m.irLostAt.IsZero() {
		m.irLostAt = now
	}
	if now.Sub(m.irLostAt) < m.tuning.IRLossTimeout {
		return // briefly lost, keep waiting
	}

	if m.state == StateRecording {
		monitoring.Debugf("state: IR lost, processing gesture")
		m.classify()
		return
	}

	// IR lost before the gesture started.
	monitoring.Debugf("state: IR lost before spell started")
	m.toIdle(FeedbackIdle)
}

// classify applies the rejection checks in order and hands a valid
// trajectory to the handler (or captures it in record mode), then returns
// to Idle. Runs synchronously on the sensor loop.
func (m *Machine) classify() {
	traj := m.traj
	defer m.toIdle(feedbackNone)

	if traj.Len() < MinTrajectoryPoints {
		monitoring.Debugf("trajectory too short (%d points)", traj.Len())
		m.handler.Feedback(Feedback{Kind: FeedbackTooShort})
		return
	}
	w, h := traj.BoundingBox()
	if w < MinBoundingBoxSize && h < MinBoundingBoxSize {
		monitoring.Debugf("gesture too small (%dx%d px)", w, h)
		m.handler.Feedback(Feedback{Kind: FeedbackTooSmall})
		return
	}
	if total := traj.PathLength(); total <= MinTotalMovementPx {
		monitoring.Debugf("insufficient movement (%.1f px)", total)
		m.handler.Feedback(Feedback{Kind: FeedbackNoMotion})
		return
	}

	if m.recordMode {
		m.handler.Feedback(Feedback{
			Kind:    FeedbackPatternCaptured,
			Pattern: Preprocess(traj.Points()),
		})
		return
	}
	m.handler.Gesture(traj.Points())
}

// toIdle resets tracking state. fb, when not feedbackNone, is emitted after
// the reset; classify emits its own outcome feedback.
func (m *Machine) toIdle(fb FeedbackKind) {
	m.state = StateIdle
	m.traj = nil
	m.stable = false
	m.irLostAt = time.Time{}
	if m.Trail != nil {
		m.Trail(-1, -1, false)
	}
	if fb != feedbackNone {
		m.handler.Feedback(Feedback{Kind: fb})
	}
}
