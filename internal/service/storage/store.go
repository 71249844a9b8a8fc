package storage

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"facecam/internal/config"
	"facecam/internal/logger"
	"facecam/internal/model"
	"facecam/internal/repository"

	"gocv.io/x/gocv"
)

// ErrInvalidName is returned for names that cannot be used as a file name.
var ErrInvalidName = errors.New("invalid image name")

// Meta describes a frame being saved.
type Meta struct {
	Name       string
	NetID      string
	Year       string
	Classifier string
	SessionID  string
}

// FrameStore writes annotated frames into the image directory and records them.
type FrameStore struct {
	imagesDir     string
	extension     string
	logger        *logger.Logger
	imageRepo     repository.ImageRepository
	detectionRepo repository.DetectionRepository
}

// NewFrameStore creates a FrameStore. The repositories are optional.
func NewFrameStore(config *config.Config, logger *logger.Logger, imageRepo repository.ImageRepository, detectionRepo repository.DetectionRepository) *FrameStore {
	return &FrameStore{
		imagesDir:     config.ImageDirectory,
		extension:     config.ImageExtension,
		logger:        logger,
		imageRepo:     imageRepo,
		detectionRepo: detectionRepo,
	}
}

// ValidateName checks that name can be used as a file name inside the image directory.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if trimmed != name {
		return fmt.Errorf("%w: %q has leading or trailing whitespace", ErrInvalidName, name)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Path returns the file path a frame saved under name is written to.
func (s *FrameStore) Path(name string) string {
	return filepath.Join(s.imagesDir, name+s.extension)
}

// Save writes frame to <dir>/<name><ext>, replacing any file of the same name,
// and records it. The file write defines success; a failed record is only logged.
func (s *FrameStore) Save(frame gocv.Mat, rects []image.Rectangle, meta Meta) (*model.Image, error) {
	if err := ValidateName(meta.Name); err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, errors.New("cannot save an empty frame")
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}

	filename := meta.Name + s.extension
	fullpath := filepath.Join(s.imagesDir, filename)

	if ok := gocv.IMWrite(fullpath, frame); !ok {
		return nil, fmt.Errorf("write image %s failed", fullpath)
	}

	var size int64
	if info, err := os.Stat(fullpath); err == nil {
		size = info.Size()
	}

	img := &model.Image{
		Name:       meta.Name,
		NetID:      meta.NetID,
		Year:       meta.Year,
		Filename:   filename,
		FilePath:   fullpath,
		FileSize:   size,
		Classifier: meta.Classifier,
		SessionID:  meta.SessionID,
		CreatedAt:  time.Now(),
	}
	s.logger.Info("Saved %s (%d detections)", fullpath, len(rects))

	s.record(img, rects)
	return img, nil
}

func (s *FrameStore) record(img *model.Image, rects []image.Rectangle) {
	if s.imageRepo == nil {
		return
	}

	imageID, err := s.imageRepo.Insert(img)
	if err != nil {
		s.logger.Error("Error saving image to database %s: %v", img.Filename, err)
		return
	}
	img.ID = imageID

	if s.detectionRepo == nil || len(rects) == 0 {
		return
	}
	detections := make([]model.Detection, 0, len(rects))
	for _, r := range rects {
		detections = append(detections, model.DetectionFromRect(imageID, r))
	}
	if err := s.detectionRepo.InsertBatch(detections); err != nil {
		s.logger.Error("Error saving detections to database: %v", err)
	}
}
