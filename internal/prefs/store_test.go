package prefs

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefaultsWhenUnset(t *testing.T) {
	s := newTestStore(t)
	if got := s.Int(MQTTPort); got != 1883 {
		t.Errorf("MQTTPort default = %d, want 1883", got)
	}
	if got := s.Str(MQTTHost); got != "" {
		t.Errorf("MQTTHost default = %q, want empty", got)
	}
	if got := s.Bool(SoundEnabled); got != true {
		t.Error("SoundEnabled default should be true")
	}
	if got := s.Int(NightlightBrightness); got != 150 {
		t.Errorf("NightlightBrightness default = %d, want 150", got)
	}
}

func TestWriteThroughPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetInt(MovementThreshold, 25); err != nil {
		t.Fatal(err)
	}
	if err := s.SetString(MQTTHost, "broker.local"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBool(SoundEnabled, false); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// A fresh store must see the flushed values.
	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got := s2.Int(MovementThreshold); got != 25 {
		t.Errorf("MovementThreshold = %d, want 25", got)
	}
	if got := s2.Str(MQTTHost); got != "broker.local" {
		t.Errorf("MQTTHost = %q", got)
	}
	if s2.Bool(SoundEnabled) {
		t.Error("SoundEnabled should be false")
	}
}

func TestTypeMismatchReturnsDefault(t *testing.T) {
	s := newTestStore(t)

	// Reading an int key as a string falls back to the supplied default.
	if got := s.GetString(MQTTPort, "fallback"); got != "fallback" {
		t.Errorf("GetString on int key = %q, want fallback", got)
	}
	if got := s.GetInt(MQTTHost, 7); got != 7 {
		t.Errorf("GetInt on string key = %d, want 7", got)
	}
	if got := s.GetBool(MQTTPort, true); got != true {
		t.Error("GetBool on int key should return default")
	}

	// Writes with the wrong type are rejected and leave the store unchanged.
	if err := s.SetString(MQTTPort, "nope"); err == nil {
		t.Error("SetString on int key should fail")
	}
	if got := s.Int(MQTTPort); got != 1883 {
		t.Errorf("MQTTPort after bad write = %d, want 1883", got)
	}
}

func TestUnknownKey(t *testing.T) {
	s := newTestStore(t)
	if got := s.GetInt(Key("bogus"), 9); got != 9 {
		t.Errorf("unknown key = %d, want default 9", got)
	}
	if err := s.SetInt(Key("bogus"), 1); err == nil {
		t.Error("SetInt on unknown key should fail")
	}
}

func TestTuningSnapshot(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetInt(GestureTimeout, 8000); err != nil {
		t.Fatal(err)
	}
	tn := s.Tuning()
	if tn.GestureTimeout != 8*time.Second {
		t.Errorf("GestureTimeout = %v, want 8s", tn.GestureTimeout)
	}
	if tn.MovementThreshold != 15 || tn.StillnessThreshold != 20 {
		t.Errorf("threshold defaults: %+v", tn)
	}
	if tn.ReadyStillnessTime != 600*time.Millisecond || tn.IRLossTimeout != 300*time.Millisecond {
		t.Errorf("time defaults: %+v", tn)
	}
}

func TestSpecsTableConsistency(t *testing.T) {
	seen := map[Key]bool{}
	for _, spec := range Specs() {
		if spec.Key == "" {
			t.Error("spec with empty key")
		}
		if seen[spec.Key] {
			t.Errorf("duplicate key %q", spec.Key)
		}
		seen[spec.Key] = true
		if spec.Label == "" {
			t.Errorf("key %q has no label", spec.Key)
		}
		if spec.Type == TypeInt && spec.Step == 0 {
			t.Errorf("int key %q has no form step", spec.Key)
		}
	}
}
