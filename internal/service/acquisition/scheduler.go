package acquisition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"facecam/internal/dto"
	"facecam/internal/logger"
	"facecam/internal/model"
	"facecam/internal/service/capture"
	"facecam/internal/service/classifier"
	"facecam/internal/service/detection"
	"facecam/internal/service/periodic"
	"facecam/internal/service/storage"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

var (
	ErrNoClassifier    = errors.New("no classifier selected")
	ErrSelectionLocked = errors.New("classifier cannot change while detection is running")
	ErrDeviceOpen      = capture.ErrDeviceOpen
	ErrNoFrame         = errors.New("camera returned no frame")
	ErrClosed          = errors.New("acquisition is shut down")
	ErrStopPending     = errors.New("previous capture is still stopping")
)

// State of the acquisition loop. The camera is open exactly while Active.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Capturer pulls frames from the camera.
type Capturer interface {
	Open(index int) error
	ReadFrame(dst *gocv.Mat) bool
	Close()
}

// Classifiers selects and hands out the active classifier.
type Classifiers interface {
	Select(variant classifier.Variant) error
	Active() classifier.Handle
	Selected() classifier.Variant
}

// Sink receives finished frames and takes ownership of them.
type Sink interface {
	Publish(frame gocv.Mat)
}

// FrameStore persists saved frames.
type FrameStore interface {
	Save(frame gocv.Mat, rects []image.Rectangle, meta storage.Meta) (*model.Image, error)
}

// Notifier reports handled failures and results to the user.
type Notifier interface {
	Notify(notice dto.Notice)
}

// Processor runs detection on a frame in place.
type Processor func(frame *gocv.Mat, cascade detection.Cascade, sizing *detection.Sizing) ([]image.Rectangle, error)

type Options struct {
	DeviceIndex int
	Period      time.Duration
	StopGrace   time.Duration
}

// session is the state of one Active period.
type session struct {
	id      string
	variant classifier.Variant
	cascade detection.Cascade
	sizing  *detection.Sizing
	task    *periodic.Task
	grab    sync.Mutex // one frame pull at a time

	detect  sync.Mutex // held while the cascade is in use
	retired bool
	stopped atomic.Bool
}

// Scheduler drives the capture, detect and publish loop.
type Scheduler struct {
	opts        Options
	capture     Capturer
	classifiers Classifiers
	sink        Sink
	store       FrameStore
	notifier    Notifier
	process     Processor
	logger      *logger.Logger

	mu       sync.Mutex
	state    State
	session  *session
	previous *session // last stopped session, until the next Start has settled it
	closed   bool

	shutdown sync.Once
}

func NewScheduler(opts Options, capture Capturer, classifiers Classifiers, sink Sink, store FrameStore, notifier Notifier, logger *logger.Logger) *Scheduler {
	return &Scheduler{
		opts:        opts,
		capture:     capture,
		classifiers: classifiers,
		sink:        sink,
		store:       store,
		notifier:    notifier,
		process:     detection.Process,
		logger:      logger,
	}
}

// Start opens the camera and begins the periodic loop. Starting while Active does nothing.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked()
}

func (s *Scheduler) startLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.state == Active {
		return nil
	}
	if err := s.settlePrevious(); err != nil {
		s.notify(dto.NoticeShutdownTimeout, "The previous capture is still finishing; try again in a moment")
		return err
	}

	cascade := s.classifiers.Active()
	if cascade == nil {
		s.notify(dto.NoticeNoClassifier, "Select a classifier before starting the camera")
		return ErrNoClassifier
	}

	if err := s.capture.Open(s.opts.DeviceIndex); err != nil {
		s.notify(dto.NoticeDeviceOpen, fmt.Sprintf("Impossible to open the camera connection (device %d)", s.opts.DeviceIndex))
		if !errors.Is(err, ErrDeviceOpen) {
			err = fmt.Errorf("%w: %v", ErrDeviceOpen, err)
		}
		return err
	}

	sess := &session{
		id:      uuid.NewString(),
		variant: s.classifiers.Selected(),
		cascade: cascade,
		sizing:  detection.NewSizing(),
	}
	sess.task = periodic.Start(s.opts.Period, func(context.Context) { s.tick(sess) })
	s.session = sess
	s.state = Active

	s.logger.Info("Acquisition started (session %s, classifier %s)", sess.id, sess.variant)
	return nil
}

// Stop ends the loop, waits briefly for the running tick and closes the camera.
// A tick that outlives the grace period is logged and left behind.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

func (s *Scheduler) stopLocked() {
	if s.state != Active {
		return
	}

	sess := s.session
	sess.stopped.Store(true)
	if err := sess.task.Stop(s.opts.StopGrace); err != nil {
		s.logger.Warning("Acquisition loop did not stop within %v: %v", s.opts.StopGrace, err)
		s.notify(dto.NoticeShutdownTimeout, "Frame capture did not stop in time; the camera is being released anyway")
	}
	s.capture.Close()

	s.logger.Info("Acquisition stopped (session %s)", sess.id)
	s.previous = sess
	s.session = nil
	s.state = Idle
}

// Toggle starts the loop when Idle and stops it when Active.
func (s *Scheduler) Toggle() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Active {
		s.stopLocked()
		return nil
	}
	return s.startLocked()
}

// Save grabs one frame, writes it under meta.Name and publishes it.
// While Idle it does nothing and returns no record. The scheduler lock is not
// held while waiting for the frame, so Stop and Shutdown never wait on a save.
func (s *Scheduler) Save(meta storage.Meta) (*model.Image, error) {
	s.mu.Lock()
	sess := s.session
	active := s.state == Active && sess != nil
	s.mu.Unlock()

	if !active {
		return nil, nil
	}
	if err := storage.ValidateName(meta.Name); err != nil {
		s.notify(dto.NoticeSaveFailed, err.Error())
		return nil, err
	}

	frame, rects, ok := s.grab(sess)
	if sess.stopped.Load() {
		if ok {
			frame.Close()
		}
		return nil, nil
	}
	if !ok {
		s.notify(dto.NoticeSaveFailed, "No frame available to save")
		return nil, ErrNoFrame
	}

	meta.Classifier = string(sess.variant)
	meta.SessionID = sess.id
	rec, err := s.store.Save(frame, rects, meta)
	s.sink.Publish(frame)

	if err != nil {
		s.logger.Error("Saving %q failed: %v", meta.Name, err)
		s.notify(dto.NoticeSaveFailed, fmt.Sprintf("Could not save %s: %v", meta.Name, err))
		return nil, err
	}
	s.notify(dto.NoticeSaved, fmt.Sprintf("Saved %s", rec.FilePath))
	return rec, nil
}

// SelectClassifier switches the active classifier. It is refused while Active.
func (s *Scheduler) SelectClassifier(variant classifier.Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Active {
		return ErrSelectionLocked
	}
	if s.previous != nil {
		s.previous.retire()
	}
	if err := s.classifiers.Select(variant); err != nil {
		s.logger.Error("Loading classifier %s: %v", variant, err)
		s.notify(dto.NoticeModelLoad, fmt.Sprintf("Could not load the %s classifier", variant))
		return err
	}
	s.logger.Info("Classifier %s selected", variant)
	return nil
}

// Shutdown runs Stop once and refuses later starts. Safe to call repeatedly.
func (s *Scheduler) Shutdown() {
	s.shutdown.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		s.stopLocked()
		if s.previous != nil {
			s.previous.retire()
		}
		s.logger.Info("Acquisition shut down")
	})
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status reports the state for the control surface.
func (s *Scheduler) Status() dto.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := dto.Status{
		State:      s.state.String(),
		Classifier: string(s.classifiers.Selected()),
	}
	if s.session != nil {
		st.SessionID = s.session.id
	}
	return st
}

func (s *Scheduler) tick(sess *session) {
	frame, _, ok := s.grab(sess)
	if !ok {
		return
	}
	if sess.stopped.Load() {
		frame.Close()
		return
	}
	s.sink.Publish(frame)
}

// grab pulls one frame and runs detection on it. The caller owns the returned frame.
func (s *Scheduler) grab(sess *session) (gocv.Mat, []image.Rectangle, bool) {
	sess.grab.Lock()
	defer sess.grab.Unlock()

	// A stopped session must not read from a device opened by a later one.
	if sess.stopped.Load() {
		return gocv.Mat{}, nil, false
	}

	frame := gocv.NewMat()
	if !s.capture.ReadFrame(&frame) {
		frame.Close()
		return gocv.Mat{}, nil, false
	}

	sess.detect.Lock()
	defer sess.detect.Unlock()
	if sess.retired {
		frame.Close()
		return gocv.Mat{}, nil, false
	}

	rects, err := s.process(&frame, sess.cascade, sess.sizing)
	if err != nil {
		s.logger.Warning("Detection failed: %v", err)
		frame.Close()
		return gocv.Mat{}, nil, false
	}
	return frame, rects, true
}

// settlePrevious makes sure no tick of the previous session is still running
// before a new one starts. It waits at most the stop grace.
func (s *Scheduler) settlePrevious() error {
	prev := s.previous
	if prev == nil {
		return nil
	}

	select {
	case <-prev.task.Done():
	default:
		timer := time.NewTimer(s.opts.StopGrace)
		defer timer.Stop()
		select {
		case <-prev.task.Done():
		case <-timer.C:
			s.logger.Warning("Session %s still has a tick running, refusing to start", prev.id)
			return ErrStopPending
		}
	}

	prev.retire()
	s.previous = nil
	return nil
}

// retire waits for a detection in progress to finish and keeps the session
// from touching its cascade again, so the classifier can be released.
func (sess *session) retire() {
	sess.detect.Lock()
	sess.retired = true
	sess.detect.Unlock()
}

func (s *Scheduler) notify(kind dto.NoticeKind, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(dto.Notice{Kind: kind, Message: message})
}
