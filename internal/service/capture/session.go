package capture

import (
	"errors"
	"fmt"
	"sync"

	"facecam/internal/logger"

	"gocv.io/x/gocv"
)

// ErrDeviceOpen is returned when the camera cannot be opened.
var ErrDeviceOpen = errors.New("camera device could not be opened")

// Device is an open camera, satisfied by *gocv.VideoCapture.
type Device interface {
	Read(m *gocv.Mat) bool
	IsOpened() bool
	Close() error
}

// Opener opens the camera with the given index.
type Opener func(index int) (Device, error)

// Options configure the default device opener.
type Options struct {
	Width  int
	Height int
}

// OpenVideoCapture returns an Opener backed by gocv.OpenVideoCapture.
func OpenVideoCapture(opts Options) Opener {
	return func(index int) (Device, error) {
		vc, err := gocv.OpenVideoCapture(index)
		if err != nil {
			return nil, err
		}
		if opts.Width > 0 {
			vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
		}
		if opts.Height > 0 {
			vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
		}
		return vc, nil
	}
}

// Session owns the camera handle for one Open..Close period.
// Close never waits for a read in progress; the device is released once that read returns.
type Session struct {
	open   Opener
	logger *logger.Logger

	mu      sync.Mutex
	dev     Device
	reading map[Device]bool
}

func NewSession(open Opener, logger *logger.Logger) *Session {
	return &Session{open: open, logger: logger, reading: make(map[Device]bool)}
}

// Open opens the device with the given index and reports whether it is usable.
func (s *Session) Open(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dev != nil {
		return nil
	}

	dev, err := s.open(index)
	if err != nil {
		s.logger.Error("Cannot open camera %d: %v", index, err)
		return fmt.Errorf("%w: index %d: %v", ErrDeviceOpen, index, err)
	}
	if dev == nil || !dev.IsOpened() {
		if dev != nil {
			dev.Close()
		}
		s.logger.Error("Camera %d is not available", index)
		return fmt.Errorf("%w: index %d", ErrDeviceOpen, index)
	}

	s.dev = dev
	s.logger.Info("Camera %d opened", index)
	return nil
}

// IsOpen reports whether the session holds an open device.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev != nil
}

// ReadFrame pulls one frame into dst. It returns false when the session is closed,
// the read fails or the device delivers an empty frame.
func (s *Session) ReadFrame(dst *gocv.Mat) bool {
	s.mu.Lock()
	dev := s.dev
	if dev == nil {
		s.mu.Unlock()
		return false
	}
	s.reading[dev] = true
	s.mu.Unlock()

	ok := dev.Read(dst)

	s.mu.Lock()
	delete(s.reading, dev)
	if s.dev != dev {
		// Closed while reading.
		dev.Close()
		ok = false
	}
	s.mu.Unlock()

	return ok && !dst.Empty()
}

// Close closes the session. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	dev := s.dev
	if dev == nil {
		return
	}
	s.dev = nil
	if !s.reading[dev] {
		if err := dev.Close(); err != nil {
			s.logger.Warning("Closing camera: %v", err)
		}
	}
	s.logger.Info("Camera closed")
}
