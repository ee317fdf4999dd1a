package dispatch

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/FutilityDesigns/Glyph-Reader/internal/gesture"
	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
	"github.com/FutilityDesigns/Glyph-Reader/internal/prefs"
	"github.com/FutilityDesigns/Glyph-Reader/internal/timeutil"
)

// Output lifetimes serviced by Tick on the sensor loop.
const (
	// LEDEffectTimeout clears a celebration or error effect.
	LEDEffectTimeout = 5 * time.Second

	// SpellDisplayTimeout clears a displayed spell label.
	SpellDisplayTimeout = 3 * time.Second

	// ScreenTimeout puts the backlight to sleep when idle.
	ScreenTimeout = 60 * time.Second
)

const (
	soundDetected = "/sounds/detected.wav"
	soundError    = "/sounds/error.wav"
	spellSounds   = 5
)

// Matcher scores a raw trajectory against the current catalogue. The engine
// supplies a closure that holds the catalogue lock for the call.
type Matcher func(points []gesture.Point) (gesture.MatchResult, bool)

// ImageResolver returns the display image path for a spell, or "".
type ImageResolver func(name string) string

// nightlight brightness adjustment per raise/lower spell.
const (
	brightnessStep = 50
	brightnessMin  = 10
	brightnessMax  = 255
)

// Dispatcher consumes state machine output and drives the device outputs.
// It owns nightlight state and the output timeout bookkeeping; everything
// runs on the sensor context, so no locking.
type Dispatcher struct {
	out    Outputs
	store  *prefs.Store
	clock  timeutil.Clock
	match  Matcher
	images ImageResolver
	rng    *rand.Rand

	// OnPatternCaptured receives the preprocessed pattern when the machine
	// completes a gesture in record mode.
	OnPatternCaptured func(pattern []gesture.Point)

	nightlightActive bool

	effectSince time.Time // zero when no timed LED effect is active
	spellSince  time.Time // zero when no spell label is displayed
	screenSince time.Time // last display activity
	screenAwake bool
}

// New wires a dispatcher. rng may be seeded deterministically in tests.
func New(out Outputs, store *prefs.Store, clock timeutil.Clock, match Matcher, images ImageResolver, rng *rand.Rand) *Dispatcher {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Dispatcher{
		out:    out,
		store:  store,
		clock:  clock,
		match:  match,
		images: images,
		rng:    rng,
	}
}

// NightlightActive reports whether the nightlight is currently on.
func (d *Dispatcher) NightlightActive() bool { return d.nightlightActive }

// Feedback implements gesture.Handler: state transition cues.
func (d *Dispatcher) Feedback(fb gesture.Feedback) {
	switch fb.Kind {
	case gesture.FeedbackDetected:
		d.out.Lights.Solid(ColorYellow)
		d.wakeScreen()
		d.effectSince = time.Time{} // cancel any running effect timer
	case gesture.FeedbackReady:
		d.out.Lights.Solid(ColorGreen)
		d.out.Display.ShowReady()
		d.playSound(soundDetected)
	case gesture.FeedbackRecording:
		d.out.Lights.Solid(ColorBlue)
	case gesture.FeedbackIdle:
		d.restoreIdleLights()
		d.out.Display.Clear()
	case gesture.FeedbackTimeout:
		d.errorOutcome("")
	case gesture.FeedbackTooShort:
		d.errorOutcome("Too Short")
	case gesture.FeedbackTooSmall:
		d.errorOutcome("Too Small")
	case gesture.FeedbackNoMotion:
		d.errorOutcome("No Match")
	case gesture.FeedbackPatternCaptured:
		d.out.Lights.Off()
		if d.OnPatternCaptured != nil {
			d.OnPatternCaptured(fb.Pattern)
		}
	}
}

// Gesture implements gesture.Handler: classify and act.
func (d *Dispatcher) Gesture(points []gesture.Point) {
	res, ok := d.match(points)
	if !ok {
		monitoring.Logf("spell: no match (best %s %.0f%%)", res.Name, res.Score*100)
		d.errorOutcome("No Match")
		return
	}
	monitoring.Logf("spell: %s (%.0f%% match, %d points)", res.Name, res.Score*100, len(points))
	d.Act(res.Name)
}

// Act performs the action bound to a matched spell name.
func (d *Dispatcher) Act(name string) {
	onSpell := d.store.Str(prefs.NightlightOnSpell)
	offSpell := d.store.Str(prefs.NightlightOffSpell)
	raiseSpell := d.store.Str(prefs.NightlightRaiseSpell)
	lowerSpell := d.store.Str(prefs.NightlightLowerSpell)

	isOn := equalSpell(name, onSpell)
	isOff := equalSpell(name, offSpell)
	toggleMode := onSpell != "" && equalSpell(onSpell, offSpell)

	switch {
	case toggleMode && (isOn || isOff):
		if d.nightlightActive {
			d.nightlightActive = false
			d.out.Lights.Off()
			monitoring.Logf("nightlight toggled off")
		} else {
			d.nightlightActive = true
			d.out.Lights.Nightlight(d.store.Int(prefs.NightlightBrightness))
			monitoring.Logf("nightlight toggled on")
		}
		d.playSpellSound()
		d.out.Publisher.Publish(name)

	case isOn:
		d.nightlightActive = true
		d.out.Lights.Nightlight(d.store.Int(prefs.NightlightBrightness))
		d.playSpellSound()
		d.showSpell(name)
		d.out.Publisher.Publish(name)
		monitoring.Logf("nightlight on")

	case isOff:
		d.nightlightActive = false
		d.out.Lights.Off()
		d.playSpellSound()
		d.showSpell(name)
		d.out.Publisher.Publish(name)
		monitoring.Logf("nightlight off")

	case d.nightlightActive && (equalSpell(name, raiseSpell) || equalSpell(name, lowerSpell)):
		step := brightnessStep
		if equalSpell(name, lowerSpell) {
			step = -brightnessStep
		}
		b := clamp(d.store.Int(prefs.NightlightBrightness)+step, brightnessMin, brightnessMax)
		if err := d.store.SetInt(prefs.NightlightBrightness, b); err != nil {
			monitoring.Logf("failed to persist nightlight brightness: %v", err)
		}
		d.out.Lights.Nightlight(b)
		d.playSpellSound()
		d.showSpell(name)
		d.out.Publisher.Publish(name)
		monitoring.Logf("nightlight brightness %d", b)

	default:
		d.playSpellSound()
		d.out.Publisher.Publish(name)
		d.showSpell(name)
		d.out.Lights.Effect(Effect(d.rng.Intn(int(effectCount))))
		d.effectSince = d.clock.Now()
	}
}

// Tick services output lifetimes; called once per sensor loop iteration.
func (d *Dispatcher) Tick() {
	now := d.clock.Now()

	if !d.effectSince.IsZero() && now.Sub(d.effectSince) >= LEDEffectTimeout {
		d.effectSince = time.Time{}
		d.restoreIdleLights()
	}
	if !d.spellSince.IsZero() && now.Sub(d.spellSince) >= SpellDisplayTimeout {
		d.spellSince = time.Time{}
		d.out.Display.Clear()
	}
	if d.screenAwake && now.Sub(d.screenSince) >= ScreenTimeout {
		d.screenAwake = false
		d.out.Display.Sleep()
	}
}

func (d *Dispatcher) restoreIdleLights() {
	if d.nightlightActive {
		d.out.Lights.Nightlight(d.store.Int(prefs.NightlightBrightness))
	} else {
		d.out.Lights.Off()
	}
}

func (d *Dispatcher) errorOutcome(msg string) {
	d.out.Lights.Solid(ColorRed)
	d.effectSince = d.clock.Now()
	d.playSound(soundError)
	if msg != "" {
		d.out.Display.ShowMessage(msg)
		d.spellSince = d.clock.Now()
		d.wakeScreen()
	}
}

func (d *Dispatcher) showSpell(name string) {
	d.out.Display.ShowSpell(name, d.images(name))
	d.spellSince = d.clock.Now()
	d.wakeScreen()
}

func (d *Dispatcher) playSpellSound() {
	d.playSound(fmt.Sprintf("/sounds/spell%d.wav", d.rng.Intn(spellSounds)+1))
}

func (d *Dispatcher) playSound(file string) {
	if !d.store.Bool(prefs.SoundEnabled) {
		return
	}
	d.out.Audio.Play(file)
}

func (d *Dispatcher) wakeScreen() {
	d.screenAwake = true
	d.screenSince = d.clock.Now()
	d.out.Display.Wake()
}

func equalSpell(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
