package main

import (
	"github.com/FutilityDesigns/Glyph-Reader/internal/dispatch"
	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
)

// Console stand-ins for the hardware drivers. The GC9A01A display, the RGBW
// strip, and the audio codec live behind these interfaces; on a desk build
// the events go to the log instead.

type consoleLights struct{}

func (consoleLights) Solid(c dispatch.Color)   { monitoring.Debugf("led: solid %s", c) }
func (consoleLights) Effect(e dispatch.Effect) { monitoring.Logf("led: effect %s", e) }
func (consoleLights) Nightlight(b int)         { monitoring.Logf("led: nightlight %d", b) }
func (consoleLights) Off()                     { monitoring.Debugf("led: off") }

type consoleDisplay struct{}

func (consoleDisplay) ShowSpell(name, imagePath string) {
	if imagePath != "" {
		monitoring.Logf("display: spell %s (%s)", name, imagePath)
		return
	}
	monitoring.Logf("display: spell %s", name)
}
func (consoleDisplay) ShowMessage(msg string)       { monitoring.Logf("display: %s", msg) }
func (consoleDisplay) ShowReady()                   { monitoring.Debugf("display: ready background") }
func (consoleDisplay) DrawTrail(x, y int, vis bool) {}
func (consoleDisplay) Clear()                       { monitoring.Debugf("display: clear") }
func (consoleDisplay) Wake()                        { monitoring.Debugf("display: wake") }
func (consoleDisplay) Sleep()                       { monitoring.Debugf("display: sleep") }

type logPlayer struct{}

func (logPlayer) PlayFile(name string) error {
	monitoring.Logf("audio: %s", name)
	return nil
}
