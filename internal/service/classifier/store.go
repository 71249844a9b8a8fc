package classifier

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"facecam/internal/service/detection"

	"gocv.io/x/gocv"
)

// ErrModelLoad is returned when a classifier file is missing or cannot be parsed.
var ErrModelLoad = errors.New("classifier model could not be loaded")

// Variant names one of the two supported classifier models.
type Variant string

const (
	None Variant = ""
	Haar Variant = "haar"
	LBP  Variant = "lbp"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case Haar, LBP:
		return Variant(s), nil
	}
	return None, fmt.Errorf("unknown classifier %q", s)
}

// Handle is a loaded classifier.
type Handle interface {
	detection.Cascade
	Close() error
}

// Loader loads a classifier from a model file.
type Loader func(path string) (Handle, error)

// LoadCascade loads an OpenCV cascade classifier file.
func LoadCascade(path string) (Handle, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
	}

	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(path) {
		cascade.Close()
		return nil, fmt.Errorf("%w: %s: not a cascade file", ErrModelLoad, path)
	}
	return &cascade, nil
}

// Store owns the active classifier. At most one variant is selected at a time.
type Store struct {
	paths map[Variant]string
	load  Loader

	mu       sync.RWMutex
	active   Handle
	selected Variant
}

// NewStore creates a store for the Haar and LBP model files. A nil loader uses LoadCascade.
func NewStore(haarPath, lbpPath string, load Loader) *Store {
	if load == nil {
		load = LoadCascade
	}
	return &Store{
		paths: map[Variant]string{Haar: haarPath, LBP: lbpPath},
		load:  load,
	}
}

// Select loads variant and makes it the only active classifier.
// The previous handle is discarded even when loading fails, leaving nothing selected.
func (s *Store) Select(variant Variant) error {
	path, ok := s.paths[variant]
	if !ok {
		return fmt.Errorf("unknown classifier %q", variant)
	}

	handle, err := s.load(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.release()
	if err != nil {
		if !errors.Is(err, ErrModelLoad) {
			err = fmt.Errorf("%w: %s: %v", ErrModelLoad, path, err)
		}
		return err
	}

	s.active = handle
	s.selected = variant
	return nil
}

// Active returns the loaded classifier, or nil when none is selected.
func (s *Store) Active() Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Selected returns the selected variant, or None.
func (s *Store) Selected() Variant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// IsSelected reports whether variant is the selected one.
func (s *Store) IsSelected(variant Variant) bool {
	return variant != None && s.Selected() == variant
}

// Close releases the active classifier.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

func (s *Store) release() {
	if s.active != nil {
		s.active.Close()
	}
	s.active = nil
	s.selected = None
}
