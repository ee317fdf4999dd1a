package portal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FutilityDesigns/Glyph-Reader/internal/prefs"
	"github.com/FutilityDesigns/Glyph-Reader/internal/spellbook"
)

type stubCatalog struct {
	names   []string
	customs []string
}

func (c *stubCatalog) Names() []string       { return c.names }
func (c *stubCatalog) CustomNames() []string { return c.customs }
func (c *stubCatalog) CustomCount() int      { return len(c.customs) }

func newTestServer(t *testing.T) (*Server, *prefs.Store) {
	t.Helper()
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	cat := &stubCatalog{
		names:   []string{"Ignite", "Gust", "Custom 1"},
		customs: []string{"Custom 1"},
	}
	return NewServer(store, func() Catalog { return cat }), store
}

func TestSettingsFormRenders(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := rec.Body.String()
	// Every preference must appear in the generated form.
	for _, spec := range prefs.Specs() {
		if !strings.Contains(body, string(spec.Key)) {
			t.Errorf("form missing field %s", spec.Key)
		}
	}
	// Spell bindings render as dropdowns fed by the catalogue.
	if !strings.Contains(body, "<select") || !strings.Contains(body, "Ignite") {
		t.Error("spell dropdowns missing")
	}
	// Custom rename section present.
	if !strings.Contains(body, "Custom 1") {
		t.Error("rename section missing custom spell")
	}
}

func TestSettingsSubmitUpdatesAndRedirects(t *testing.T) {
	s, store := newTestServer(t)
	saved := false
	s.OnSave = func() { saved = true }

	form := url.Values{}
	form.Set(string(prefs.MQTTHost), "broker.local")
	form.Set(string(prefs.MQTTPort), "1884")
	form.Set(string(prefs.MovementThreshold), "30")
	form.Set(string(prefs.SoundEnabled), "on")

	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/settings" {
		t.Errorf("redirect to %q", got)
	}
	if !saved {
		t.Error("OnSave not invoked")
	}
	if store.Str(prefs.MQTTHost) != "broker.local" {
		t.Errorf("MQTTHost = %q", store.Str(prefs.MQTTHost))
	}
	if store.Int(prefs.MQTTPort) != 1884 {
		t.Errorf("MQTTPort = %d", store.Int(prefs.MQTTPort))
	}
	if store.Int(prefs.MovementThreshold) != 30 {
		t.Errorf("MovementThreshold = %d", store.Int(prefs.MovementThreshold))
	}
	if !store.Bool(prefs.SoundEnabled) {
		t.Error("SoundEnabled should stay true when checked")
	}
}

func TestSettingsSubmitBadIntIgnored(t *testing.T) {
	s, store := newTestServer(t)
	form := url.Values{}
	form.Set(string(prefs.MQTTPort), "notanumber")
	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)

	if store.Int(prefs.MQTTPort) != 1883 {
		t.Errorf("bad int should leave default, got %d", store.Int(prefs.MQTTPort))
	}
}

func TestRenameSubmitQueues(t *testing.T) {
	s, _ := newTestServer(t)
	var queued []spellbook.Rename
	s.OnRenames = func(r []spellbook.Rename) { queued = r }

	form := url.Values{}
	form.Set("old0", "Custom 1")
	form.Set("new0", "Fireball")
	req := httptest.NewRequest(http.MethodPost, "/spells/rename", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status %d", rec.Code)
	}
	if len(queued) != 1 || queued[0] != (spellbook.Rename{Old: "Custom 1", New: "Fireball"}) {
		t.Errorf("queued = %+v", queued)
	}
}

func TestRenameNoChangesNotQueued(t *testing.T) {
	s, _ := newTestServer(t)
	called := false
	s.OnRenames = func([]spellbook.Rename) { called = true }

	form := url.Values{}
	form.Set("old0", "Custom 1")
	form.Set("new0", "Custom 1") // unchanged
	req := httptest.NewRequest(http.MethodPost, "/spells/rename", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, req)

	if called {
		t.Error("unchanged renames should not be queued")
	}
}

func TestSpellsAPI(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spells", nil))

	var got struct {
		Spells []string `json:"spells"`
		Custom []string `json:"custom"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Spells) != 3 || len(got.Custom) != 1 {
		t.Errorf("got %+v", got)
	}
}

func TestConfigAPI(t *testing.T) {
	s, store := newTestServer(t)
	if err := store.SetInt(prefs.GestureTimeout, 7000); err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got[string(prefs.GestureTimeout)] != float64(7000) {
		t.Errorf("gestureTimeout = %v", got[string(prefs.GestureTimeout)])
	}
	if got[string(prefs.SoundEnabled)] != true {
		t.Errorf("soundEnabled = %v", got[string(prefs.SoundEnabled)])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/settings", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status %d", rec.Code)
	}
}
