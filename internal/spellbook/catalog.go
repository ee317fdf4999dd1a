package spellbook

import (
	"strings"

	"github.com/FutilityDesigns/Glyph-Reader/internal/gesture"
	"github.com/FutilityDesigns/Glyph-Reader/internal/monitoring"
)

// Catalog is the in-memory, fully preprocessed template list the scorer
// consults. After build every pattern is exactly gesture.ResamplePoints
// points in the 0..1000 box. Templates are immutable once built; overlay
// edits rebuild the whole catalogue.
type Catalog struct {
	templates   []gesture.Template
	customCount int
}

// Build assembles the catalogue: built-in templates, preprocessed, with the
// overlay (when present and readable) merged over them. A malformed overlay
// is logged and skipped so the built-ins keep working.
func Build(store *Store) *Catalog {
	c := &Catalog{}
	for _, b := range builtins() {
		c.templates = append(c.templates, gesture.Template{
			Name:    b.name,
			Pattern: gesture.Preprocess(b.points),
		})
	}

	if store == nil || !store.Available() {
		monitoring.Logf("spellbook: %d built-in spells (no storage medium)", len(c.templates))
		return c
	}

	ov, err := store.Load()
	if err != nil {
		monitoring.Logf("spellbook: overlay skipped: %v", err)
		return c
	}
	c.merge(ov)
	monitoring.Logf("spellbook: %d spells loaded (%d custom)", len(c.templates), c.customCount)
	return c
}

func (c *Catalog) merge(ov *Overlay) {
	for _, mod := range ov.Modify {
		if mod.BuiltInName == "" {
			continue
		}
		idx := c.indexOf(mod.BuiltInName)
		if idx < 0 {
			monitoring.Logf("spellbook: built-in %q not found for modification", mod.BuiltInName)
			continue
		}
		t := &c.templates[idx]
		if mod.CustomName != "" {
			monitoring.Debugf("spellbook: renamed %q to %q", t.Name, mod.CustomName)
			t.Name = mod.CustomName
		}
		if mod.ImageFile != "" {
			t.ImageFile = mod.ImageFile
		}
		if len(mod.Pattern) > 0 {
			t.Pattern = gesture.Preprocess(stampPattern(mod.Pattern))
		}
	}

	for _, cu := range ov.Custom {
		if cu.Name == "" {
			monitoring.Debugf("spellbook: skipping custom spell with no name")
			continue
		}
		if len(cu.Pattern) == 0 {
			monitoring.Debugf("spellbook: skipping custom spell %q with no pattern", cu.Name)
			continue
		}
		c.templates = append(c.templates, gesture.Template{
			Name:      cu.Name,
			Pattern:   gesture.Preprocess(stampPattern(cu.Pattern)),
			ImageFile: cu.ImageFile,
			Custom:    true,
		})
		c.customCount++
	}
}

// stampPattern assigns synthetic timestamps to overlay points, which carry
// only coordinates.
func stampPattern(pts []gesture.Point) []gesture.Point {
	out := make([]gesture.Point, len(pts))
	for i, p := range pts {
		out[i] = gesture.Point{X: p.X, Y: p.Y, T: uint32(i * 100)}
	}
	return out
}

func (c *Catalog) indexOf(name string) int {
	for i, t := range c.templates {
		if strings.EqualFold(t.Name, name) {
			return i
		}
	}
	return -1
}

// Templates returns the catalogue in order. Callers must not mutate it.
func (c *Catalog) Templates() []gesture.Template { return c.templates }

// Len returns the number of templates.
func (c *Catalog) Len() int { return len(c.templates) }

// CustomCount returns how many trailing custom entries the overlay added;
// it bounds the configuration portal's rename UI.
func (c *Catalog) CustomCount() int { return c.customCount }

// Names returns every template name in catalogue order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.templates))
	for i, t := range c.templates {
		names[i] = t.Name
	}
	return names
}

// CustomNames returns the names of user-recorded spells.
func (c *Catalog) CustomNames() []string {
	var names []string
	for _, t := range c.templates {
		if t.Custom {
			names = append(names, t.Name)
		}
	}
	return names
}

// Lookup returns the template with the given name (case-insensitive).
func (c *Catalog) Lookup(name string) (gesture.Template, bool) {
	if idx := c.indexOf(name); idx >= 0 {
		return c.templates[idx], true
	}
	return gesture.Template{}, false
}
