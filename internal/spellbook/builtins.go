// Package spellbook owns the spell catalogue: the built-in gesture template
// library, the JSON overlay on removable storage that customizes it, and
// user-recorded custom spells written back to that overlay.
package spellbook

import (
	"math"

	"github.com/FutilityDesigns/Glyph-Reader/internal/gesture"
)

// Built-in patterns are authored in the camera's 1024x768 reference space
// with a small number of key points; the catalogue build normalizes and
// resamples them, so exact coordinates only matter proportionally. Circular
// strokes use a clock-face metaphor: 12 at the top, 3 right, 6 bottom, 9 left.

func pt(x, y, t int) gesture.Point {
	return gesture.Point{X: x, Y: y, T: uint32(t)}
}

// arc emits steps+1 points along a circle, starting at startDeg and moving
// stepDeg degrees each step (standard trig angles, positive Y down as the
// camera sees it).
func arc(cx, cy, r float64, startDeg, stepDeg, steps int) []gesture.Point {
	pts := make([]gesture.Point, 0, steps+1)
	for i := 0; i <= steps; i++ {
		a := float64(startDeg+i*stepDeg) * math.Pi / 180
		pts = append(pts, pt(
			int(cx+r*math.Cos(a)),
			int(cy+r*math.Sin(a)),
			i*100,
		))
	}
	return pts
}

type builtinSpell struct {
	name   string
	points []gesture.Point
}

// builtins returns the raw (unpreprocessed) built-in library in catalogue
// order.
func builtins() []builtinSpell {
	var spells []builtinSpell
	add := func(name string, points []gesture.Point) {
		spells = append(spells, builtinSpell{name: name, points: points})
	}

	// Unlock: clockwise circle from the top, then a line down through the
	// center (key-in-lock motion).
	unlock := arc(512, 384, 200, -90, 45, 8)
	unlock = append(unlock,
		pt(512, 184, 900),
		pt(512, 384, 1000),
		pt(512, 584, 1100),
		pt(512, 684, 1200),
	)
	add("Unlock", unlock)

	// Terminate: Z shape with an extended tail.
	add("Terminate", []gesture.Point{
		pt(200, 200, 0), pt(512, 200, 100), pt(824, 200, 200),
		pt(612, 342, 300), pt(400, 484, 400), pt(200, 584, 500),
		pt(512, 602, 600), pt(824, 620, 700),
	})

	// Ignite: triangle (fire symbol).
	add("Ignite", []gesture.Point{
		pt(200, 600, 0), pt(356, 400, 100), pt(512, 200, 200),
		pt(668, 400, 300), pt(824, 600, 400), pt(512, 600, 500),
		pt(200, 600, 600),
	})

	// Gust: V shape.
	add("Gust", []gesture.Point{
		pt(200, 200, 0), pt(356, 350, 100), pt(512, 500, 200),
		pt(668, 350, 300), pt(824, 200, 400),
	})

	// Lower: arc from 12 o'clock clockwise to 7, then a line down.
	lower := arc(400, 400, 200, 90, -30, 7)
	lowEndX := int(400 + 200*math.Cos(150*math.Pi/180))
	lowEndY := int(400 + 200*math.Sin(150*math.Pi/180))
	lower = append(lower, pt(lowEndX, lowEndY+150, 900), pt(lowEndX, lowEndY+300, 1000))
	add("Lower", lower)

	// Raise: arc from 6 o'clock counter-clockwise to 10, then a line up.
	raise := arc(400, 400, 200, 270, 30, 8)
	raiseEndX := int(400 + 200*math.Cos(240*math.Pi/180))
	raiseEndY := int(400 + 200*math.Sin(240*math.Pi/180))
	raise = append(raise, pt(raiseEndX, raiseEndY-150, 900), pt(raiseEndX, raiseEndY-300, 1000))
	add("Raise", raise)

	// Move: "4" shape (vertical up, diagonal down-left, horizontal right).
	add("Move", []gesture.Point{
		pt(650, 600, 0), pt(650, 400, 100), pt(650, 200, 200),
		pt(425, 300, 300), pt(200, 400, 400), pt(512, 400, 500),
		pt(824, 400, 600),
	})

	// Levitate: half circle 9 to 3 counter-clockwise, then a line down.
	levitate := arc(512, 300, 200, 180, -30, 6)
	levitate = append(levitate, pt(712, 650, 700))
	add("Levitate", levitate)

	// Silence: half circle 3 to 9 clockwise, then a line down.
	silence := arc(512, 300, 200, 0, 30, 6)
	silence = append(silence, pt(312, 650, 700))
	add("Silence", silence)

	// Halt: capital M.
	add("Halt", []gesture.Point{
		pt(200, 600, 0), pt(275, 400, 100), pt(350, 200, 200),
		pt(431, 325, 300), pt(512, 450, 400), pt(593, 325, 500),
		pt(674, 200, 600), pt(749, 400, 700), pt(824, 600, 800),
	})

	// Resume: capital W.
	add("Resume", []gesture.Point{
		pt(200, 200, 0), pt(275, 400, 100), pt(350, 600, 200),
		pt(431, 475, 300), pt(512, 350, 400), pt(593, 475, 500),
		pt(674, 600, 600), pt(749, 400, 700), pt(824, 200, 800),
	})

	// Illuminate: five-point star.
	add("Illuminate", []gesture.Point{
		pt(320, 775, 0), pt(512, 186, 100), pt(703, 775, 200),
		pt(202, 441, 300), pt(821, 441, 400), pt(320, 775, 500),
	})

	// Dark: X with the left side connected.
	add("Dark", []gesture.Point{
		pt(824, 200, 0), pt(488, 484, 100), pt(152, 768, 200),
		pt(152, 484, 300), pt(152, 200, 400), pt(488, 484, 500),
		pt(824, 768, 600),
	})

	return spells
}

// BuiltinNames returns the built-in spell names in catalogue order.
func BuiltinNames() []string {
	b := builtins()
	names := make([]string, len(b))
	for i, s := range b {
		names[i] = s.name
	}
	return names
}
