// Package engine is the concurrency fabric: two cooperating execution
// contexts sharing an Engine. The sensor context runs the state machine,
// sensor polling, classification, and all display/LED updates at 100Hz while
// tracking (20Hz idle). The network context runs deferred persistence; the
// MQTT reconnect pump runs beside it, launched by the caller. Shared state crosses between them through
// single-writer flags and bounded mailboxes; catalogue rebuilds are drained
// only while the sensor context reports Idle so classification never races a
// rebuild.
package engine

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/FutilityDesigns/Glyph-Reader/internal/backoff"
	"github.com/FutilityDesigns/Glyph-Reader/internal/dispatch"
	"github.com/FutilityDesigns/Glyph-Reader/internal/gesture"
	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
	"github.com/FutilityDesigns/Glyph-Reader/internal/prefs"
	"github.com/FutilityDesigns/Glyph-Reader/internal/sensor"
	"github.com/FutilityDesigns/Glyph-Reader/internal/spellbook"
	"github.com/FutilityDesigns/Glyph-Reader/internal/timeutil"
)

// Polling cadence: fast while tracking, slow while idle.
const (
	trackingInterval = 10 * time.Millisecond
	idleInterval     = 50 * time.Millisecond
	networkInterval  = 10 * time.Millisecond
)

// ButtonEvent is a debounced physical button press, produced by the button
// polling step and consumed by the sensor loop.
type ButtonEvent int

const (
	Button1 ButtonEvent = iota + 1 // confirm / save
	Button2                        // cancel / discard
)

type recordPhase int

const (
	recordOff recordPhase = iota
	recordTracking
	recordPreview
)

// Engine owns the runtime: machine, dispatcher, catalogue, and the
// cross-context flags.
type Engine struct {
	clock   timeutil.Clock
	store   *prefs.Store
	source  sensor.Source
	overlay *spellbook.Store

	machine    *gesture.Machine
	dispatcher *dispatch.Dispatcher
	audio      *AudioQueue
	player     Player

	// catalog is read by the scorer on the sensor context and replaced by
	// rebuilds, which only happen on the sensor context while Idle.
	catMu   sync.RWMutex
	catalog *spellbook.Catalog

	// Cross-context flags. Each has a single writer.
	tuningDirty  atomic.Bool // set by N (portal submit), drained by S
	rebuildDirty atomic.Bool // set by N after overlay writes, drained by S at Idle

	// pending work owned by the network context.
	pendMu         sync.Mutex
	pendingRenames []spellbook.Rename
	pendingCustom  [][]gesture.Point

	// commands are applied on the sensor context between frames.
	commands chan func()
	buttons  chan ButtonEvent

	// custom spell recording flow.
	recPhase recordPhase
	recorded []gesture.Point

	// frame tail subscribers (debug SSE).
	subMu       sync.Mutex
	subscribers map[string]chan string

	sensorUp atomic.Bool
}

// New assembles the runtime. out supplies the output collaborators; its
// Audio field is replaced by the bounded queue over player (nil player mutes
// audio).
func New(clock timeutil.Clock, store *prefs.Store, src sensor.Source, overlay *spellbook.Store, out dispatch.Outputs, player Player) *Engine {
	e := &Engine{
		clock:       clock,
		store:       store,
		source:      src,
		overlay:     overlay,
		audio:       NewAudioQueue(),
		player:      player,
		catalog:     spellbook.Build(overlay),
		commands:    make(chan func(), 8),
		buttons:     make(chan ButtonEvent, 8),
		subscribers: make(map[string]chan string),
	}

	out.Audio = e.audio
	e.dispatcher = dispatch.New(out, store, clock, e.matchCurrent, e.imageFor, rand.New(rand.NewSource(time.Now().UnixNano())))
	e.dispatcher.OnPatternCaptured = e.patternCaptured

	e.machine = gesture.NewMachine(clock, store.Tuning(), e.dispatcher)
	e.machine.Trail = out.Display.DrawTrail
	return e
}

// matchCurrent scores a trajectory against the live catalogue.
func (e *Engine) matchCurrent(points []gesture.Point) (gesture.MatchResult, bool) {
	e.catMu.RLock()
	defer e.catMu.RUnlock()
	return gesture.Match(points, e.catalog.Templates())
}

// imageFor resolves a spell's display image on removable storage.
func (e *Engine) imageFor(name string) string {
	e.catMu.RLock()
	t, ok := e.catalog.Lookup(name)
	e.catMu.RUnlock()
	if !ok || e.overlay == nil {
		return ""
	}
	if !e.overlay.HasImage(t) {
		return ""
	}
	return e.overlay.ImagePath(t)
}

// Catalog returns the current catalogue for the portal.
func (e *Engine) Catalog() *spellbook.Catalog {
	e.catMu.RLock()
	defer e.catMu.RUnlock()
	return e.catalog
}

// MarkSettingsSaved flags new preference values for pickup; called by the
// portal on the network context.
func (e *Engine) MarkSettingsSaved() {
	e.tuningDirty.Store(true)
}

// QueueRenames hands rename pairs to the network context.
func (e *Engine) QueueRenames(renames []spellbook.Rename) {
	e.pendMu.Lock()
	e.pendingRenames = append(e.pendingRenames, renames...)
	e.pendMu.Unlock()
}

// EnterRecordMode switches the machine into custom-spell capture on the next
// sensor iteration. Fails when no storage medium is present.
func (e *Engine) EnterRecordMode() error {
	if !e.overlay.Available() {
		return spellbook.ErrNoCard
	}
	e.commands <- func() {
		e.recPhase = recordTracking
		e.recorded = nil
		e.machine.SetRecordMode(true)
		monitoring.Logf("record mode: trace the new spell")
	}
	return nil
}

// PressButton injects a debounced button event.
func (e *Engine) PressButton(b ButtonEvent) {
	select {
	case e.buttons <- b:
	default:
	}
}

// patternCaptured runs on the sensor context when the machine completes a
// gesture in record mode.
func (e *Engine) patternCaptured(pattern []gesture.Point) {
	e.recorded = pattern
	e.recPhase = recordPreview
	e.machine.SetRecordMode(false)
	monitoring.Logf("record mode: captured %d points, confirm to save", len(pattern))
}

// handleButton services record-flow confirmation on the sensor context.
func (e *Engine) handleButton(b ButtonEvent) {
	if e.recPhase != recordPreview {
		return
	}
	switch b {
	case Button1:
		e.pendMu.Lock()
		e.pendingCustom = append(e.pendingCustom, e.recorded)
		e.pendMu.Unlock()
		monitoring.Logf("record mode: queued spell for save")
	case Button2:
		monitoring.Logf("record mode: discarded")
	}
	e.recorded = nil
	e.recPhase = recordOff
}

// Subscribe registers a frame-tail channel (debug SSE).
func (e *Engine) Subscribe() (string, chan string) {
	b := make([]byte, 8)
	crand.Read(b)
	id := hex.EncodeToString(b)
	ch := make(chan string, 16)
	e.subMu.Lock()
	e.subscribers[id] = ch
	e.subMu.Unlock()
	return id, ch
}

// Unsubscribe removes a frame-tail channel.
func (e *Engine) Unsubscribe(id string) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if ch, ok := e.subscribers[id]; ok {
		close(ch)
		delete(e.subscribers, id)
	}
}

func (e *Engine) publishFrame(x, y int, ok bool) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if len(e.subscribers) == 0 {
		return
	}
	ms := e.clock.Now().UnixMilli()
	var line string
	if ok {
		line = fmt.Sprintf("IR,%d,%d,%d", ms, x, y)
	} else {
		line = fmt.Sprintf("IR,%d,-1,-1", ms)
	}
	for _, ch := range e.subscribers {
		select {
		case ch <- line:
		default:
			// never block the sensor loop on a slow subscriber
		}
	}
}

// Run starts both execution contexts and the audio drain, returning when ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.runSensor(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.runNetwork(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.audio.Drain(e.player)
	}()

	<-ctx.Done()
	e.audio.Close()
	wg.Wait()
}

// runSensor is context S: sensor polling, the state machine, classification,
// and output timeouts. Nothing in the body blocks; the only suspension point
// is the sleep at the end of each iteration.
func (e *Engine) runSensor(ctx context.Context) {
	initBackoff := backoff.NewDefault()
	var nextInitAttempt time.Time

	for ctx.Err() == nil {
		e.sensorStep(initBackoff, &nextInitAttempt)

		interval := idleInterval
		if e.machine.Tracking() {
			interval = trackingInterval
		}
		e.clock.Sleep(interval)
	}
}

// sensorStep is one iteration of context S.
func (e *Engine) sensorStep(initBackoff *backoff.Backoff, nextInitAttempt *time.Time) {
	now := e.clock.Now()

	// Bring the sensor up, retrying with backoff; the rest of the device
	// keeps running while the camera is absent.
	if !e.sensorUp.Load() && now.After(*nextInitAttempt) {
		if err := e.source.Init(); err != nil {
			monitoring.Logf("sensor init failed: %v (retry in %s)", err, initBackoff.Next())
			*nextInitAttempt = now.Add(initBackoff.Next())
			initBackoff.Failure()
		} else {
			e.sensorUp.Store(true)
			initBackoff.Success()
		}
	}

	// Apply queued cross-context commands between frames.
	for {
		select {
		case cmd := <-e.commands:
			cmd()
			continue
		default:
		}
		break
	}

	// Service buttons.
	for {
		select {
		case b := <-e.buttons:
			e.handleButton(b)
			continue
		default:
		}
		break
	}

	if e.sensorUp.Load() {
		x, y, ok := e.source.ReadPoint()
		e.publishFrame(x, y, ok)
		if ok {
			p := gesture.Point{X: x, Y: y, T: uint32(now.UnixMilli())}
			e.machine.Observe(&p)
		} else {
			e.machine.Observe(nil)
		}
	}

	e.dispatcher.Tick()

	// Drain deferred flags only while Idle so a rebuild never races an
	// in-flight classification.
	if e.machine.State() == gesture.StateIdle {
		if e.tuningDirty.CompareAndSwap(true, false) {
			e.machine.SetTuning(e.store.Tuning())
			monitoring.Logf("tuning parameters reloaded")
		}
		if e.rebuildDirty.CompareAndSwap(true, false) {
			cat := spellbook.Build(e.overlay)
			e.catMu.Lock()
			e.catalog = cat
			e.catMu.Unlock()
		}
	}
}

// runNetwork is context N: deferred persistence (overlay writes) on a ~10ms
// cadence. The MQTT pump runs beside it, launched by the caller.
func (e *Engine) runNetwork(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		e.drainPending()
		e.clock.Sleep(networkInterval)
	}
}

// drainPending commits queued overlay writes and requests a rebuild.
func (e *Engine) drainPending() {
	e.pendMu.Lock()
	renames := e.pendingRenames
	customs := e.pendingCustom
	e.pendingRenames = nil
	e.pendingCustom = nil
	e.pendMu.Unlock()

	if len(renames) == 0 && len(customs) == 0 {
		return
	}

	changed := false
	for _, pattern := range customs {
		name, err := e.overlay.AppendCustom(pattern)
		if err != nil {
			monitoring.Logf("failed to save custom spell: %v", err)
			continue
		}
		monitoring.Logf("saved custom spell %q", name)
		changed = true
	}
	if len(renames) > 0 {
		applied, err := e.overlay.RenameBatch(renames)
		if err != nil {
			monitoring.Logf("failed to rename spells: %v", err)
		}
		changed = changed || applied
	}
	if changed {
		e.rebuildDirty.Store(true)
	}
}
