// Command glyphreader runs the wand gesture recognizer: the Pixart IR
// camera poll loop and spell classifier on one execution context, the
// configuration portal and MQTT publisher on another.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/FutilityDesigns/Glyph-Reader/internal/dispatch"
	"github.com/FutilityDesigns/Glyph-Reader/internal/engine"
	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
	"github.com/FutilityDesigns/Glyph-Reader/internal/mqttpub"
	"github.com/FutilityDesigns/Glyph-Reader/internal/portal"
	"github.com/FutilityDesigns/Glyph-Reader/internal/prefs"
	"github.com/FutilityDesigns/Glyph-Reader/internal/sensor"
	"github.com/FutilityDesigns/Glyph-Reader/internal/spellbook"
	"github.com/FutilityDesigns/Glyph-Reader/internal/timeutil"
)

var (
	devMode    = flag.Bool("dev", false, "Run with a mock sensor (no hardware)")
	listen     = flag.String("listen", ":8080", "Portal listen address")
	i2cDevice  = flag.String("i2c", "/dev/i2c-1", "I2C device for the Pixart camera")
	serialPort = flag.String("serial", "", "Read frames from the camera's serial debug stream instead of I2C")
	storage    = flag.String("storage", "/media/sd", "Removable storage mount (spells.json, images, sounds)")
	dbFile     = flag.String("db", "glyphreader.db", "Preference database path")
	debug      = flag.Bool("debug", false, "Enable frame-rate debug logging")
)

// setupStatus mirrors the device boot screen: one line per subsystem.
func setupStatus(step int, name, status string) {
	monitoring.Logf("setup %d: %-12s %s", step, name, status)
}

func main() {
	flag.Parse()
	monitoring.SetDebug(*debug)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	clock := timeutil.RealClock{}
	step := 1

	// Preferences.
	store, err := prefs.Open(*dbFile)
	if err != nil {
		log.Fatalf("failed to open preference store: %v", err)
	}
	defer store.Close()
	setupStatus(step, "Preferences", "pass")
	step++

	// Removable storage and spell overlay.
	overlay := spellbook.NewStore(*storage)
	if overlay.Available() {
		setupStatus(step, "Storage", "pass")
	} else {
		setupStatus(step, "Storage", "absent (custom spells unavailable)")
	}
	step++

	// Frame source.
	var src sensor.Source
	switch {
	case *devMode:
		src = sensor.NewMockSource(nil)
		setupStatus(step, "Camera", "mock")
	case *serialPort != "":
		src = sensor.NewSerialSource(*serialPort, 115200)
		setupStatus(step, "Camera", "serial "+*serialPort)
	default:
		bus, err := sensor.OpenLinuxBus(*i2cDevice, sensor.DefaultAddr)
		if err != nil {
			// Degrade gracefully; the engine retries init with backoff and
			// the rest of the device keeps working.
			setupStatus(step, "Camera", "fail: "+err.Error())
			src = sensor.NewMockSource(nil)
		} else {
			src = sensor.NewCamera(bus, clock)
			setupStatus(step, "Camera", "ready")
		}
	}
	defer src.Close()
	step++

	// MQTT.
	mqttCfg := mqttpub.Config{
		Host:  store.Str(prefs.MQTTHost),
		Port:  store.Int(prefs.MQTTPort),
		Topic: store.Str(prefs.MQTTTopic),
	}
	publisher := mqttpub.New(mqttCfg)
	if mqttCfg.Configured() {
		setupStatus(step, "MQTT", "ready "+mqttpub.ClientID())
	} else {
		setupStatus(step, "MQTT", "skip (no broker configured)")
	}
	step++

	// Output collaborators. The real display, LED, and audio drivers attach
	// here; the console implementations keep headless runs observable.
	out := dispatch.Outputs{
		Lights:    consoleLights{},
		Display:   consoleDisplay{},
		Publisher: publisher,
	}

	eng := engine.New(clock, store, src, overlay, out, logPlayer{})
	setupStatus(step, "Spells", "pass")
	step++

	// Portal.
	srv := portal.NewServer(store, func() portal.Catalog { return eng.Catalog() })
	srv.OnSave = eng.MarkSettingsSaved
	srv.OnRenames = eng.QueueRenames
	srv.FrameTail = eng

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// Engine: sensor + network contexts.
	wg.Add(1)
	go func() {
		defer wg.Done()
		eng.Run(ctx)
		log.Print("engine stopped")
	}()

	// MQTT reconnect pump.
	wg.Add(1)
	go func() {
		defer wg.Done()
		publisher.Maintain(ctx)
		log.Print("mqtt pump stopped")
	}()

	// Portal HTTP server.
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := srv.ServeMux()
		srv.AttachAdminRoutes(mux)

		server := &http.Server{
			Addr:    *listen,
			Handler: portal.LoggingMiddleware(mux),
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start portal: %v", err)
			}
		}()
		setupStatus(step, "Portal", "listening on "+*listen)

		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("portal shutdown error: %v", err)
			server.Close()
		}
		log.Print("portal stopped")
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}
