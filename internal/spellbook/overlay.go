package spellbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/FutilityDesigns/Glyph-Reader/internal/gesture"
)

const (
	// OverlayFile is the well-known overlay filename on removable storage.
	OverlayFile = "spells.json"

	// MaxOverlaySize bounds the overlay file.
	MaxOverlaySize = 16 * 1024

	customPrefix = "Custom "
)

// ErrNoCard is returned when the storage medium is absent: custom-spell
// features are unavailable but the built-in catalogue keeps working.
var ErrNoCard = errors.New("storage medium not present")

// Overlay is the on-storage JSON customization document merged over the
// built-in templates at catalogue build.
type Overlay struct {
	Modify []ModifyEntry `json:"modify,omitempty"`
	Custom []CustomEntry `json:"custom,omitempty"`
}

// ModifyEntry customizes one built-in spell. Optional fields apply in order:
// rename, image, pattern.
type ModifyEntry struct {
	BuiltInName string          `json:"builtInName"`
	CustomName  string          `json:"customName,omitempty"`
	ImageFile   string          `json:"imageFile,omitempty"`
	Pattern     []gesture.Point `json:"pattern,omitempty"`
}

// CustomEntry defines a user-recorded spell.
type CustomEntry struct {
	Name      string          `json:"name"`
	ImageFile string          `json:"imageFile,omitempty"`
	Pattern   []gesture.Point `json:"pattern"`
}

// Rename is one (old, new) pair of a batch rename.
type Rename struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Store reads and writes the overlay under a storage root (the mounted SD
// card). An empty or missing root behaves like a missing card.
type Store struct {
	root string
}

// NewStore returns a store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Available reports whether the storage medium is present.
func (s *Store) Available() bool {
	if s == nil || s.root == "" {
		return false
	}
	info, err := os.Stat(s.root)
	return err == nil && info.IsDir()
}

func (s *Store) overlayPath() string {
	return filepath.Join(s.root, OverlayFile)
}

// Load parses the overlay file. A missing file is legal and yields an empty
// overlay; an oversized or malformed file is an error the caller logs and
// skips.
func (s *Store) Load() (*Overlay, error) {
	if !s.Available() {
		return nil, ErrNoCard
	}
	path := s.overlayPath()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &Overlay{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > MaxOverlaySize {
		return nil, fmt.Errorf("overlay too large: %d bytes (max %d)", info.Size(), MaxOverlaySize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var ov Overlay
	if err := json.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &ov, nil
}

// Save serializes the overlay back to storage.
func (s *Store) Save(ov *Overlay) error {
	if !s.Available() {
		return ErrNoCard
	}
	data, err := json.MarshalIndent(ov, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize overlay: %w", err)
	}
	if err := os.WriteFile(s.overlayPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write overlay: %w", err)
	}
	return nil
}

// AppendCustom adds a recorded pattern to the overlay in one
// read-modify-write cycle, auto-naming it "Custom k" where k is one past
// the highest existing custom number. Returns the assigned name.
func (s *Store) AppendCustom(pattern []gesture.Point) (string, error) {
	ov, err := s.Load()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s%d", customPrefix, maxCustomNumber(ov)+1)
	ov.Custom = append(ov.Custom, CustomEntry{Name: name, Pattern: pattern})
	if err := s.Save(ov); err != nil {
		return "", err
	}
	return name, nil
}

// RenameBatch applies all renames to matching custom entries in one
// read-modify-write cycle. Returns whether anything changed.
func (s *Store) RenameBatch(renames []Rename) (bool, error) {
	if len(renames) == 0 {
		return false, nil
	}
	ov, err := s.Load()
	if err != nil {
		return false, err
	}
	changed := false
	for i := range ov.Custom {
		for _, r := range renames {
			if ov.Custom[i].Name == r.Old && r.New != "" {
				ov.Custom[i].Name = r.New
				changed = true
				break
			}
		}
	}
	if !changed {
		return false, nil
	}
	if err := s.Save(ov); err != nil {
		return false, err
	}
	return true, nil
}

// ImagePath resolves a template's spell image file under the storage root:
// the overlay's imageFile override when present, else
// "<lowercased name>.bmp".
func (s *Store) ImagePath(t gesture.Template) string {
	if !s.Available() {
		return ""
	}
	name := t.ImageFile
	if name == "" {
		name = strings.ToLower(t.Name) + ".bmp"
	}
	name = strings.TrimPrefix(name, "/")
	return filepath.Join(s.root, name)
}

// HasImage reports whether the template's image file exists on storage.
func (s *Store) HasImage(t gesture.Template) bool {
	p := s.ImagePath(t)
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil
}

// CustomNumber extracts k from a "Custom k" name; ok is false for any other
// shape.
func CustomNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, customPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(name, customPrefix)))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func maxCustomNumber(ov *Overlay) int {
	maxN := 0
	for _, c := range ov.Custom {
		if n, ok := CustomNumber(c.Name); ok && n > maxN {
			maxN = n
		}
	}
	return maxN
}
