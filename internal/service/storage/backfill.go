package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"facecam/internal/model"
)

// Backfill records image files that exist in the image directory but not in the database.
// Files are matched by extension; the file modification time becomes the record date.
func (s *FrameStore) Backfill() (inserted, skipped int, err error) {
	if s.imageRepo == nil {
		return 0, 0, errors.New("backfill needs an image repository")
	}

	files, err := os.ReadDir(s.imagesDir)
	if err != nil {
		return 0, 0, fmt.Errorf("read image directory: %w", err)
	}

	var images []model.Image
	for _, file := range files {
		if file.IsDir() || !strings.EqualFold(filepath.Ext(file.Name()), s.extension) {
			continue
		}

		exists, err := s.imageRepo.ExistsFilename(file.Name())
		if err != nil {
			return 0, skipped, err
		}
		if exists {
			skipped++
			continue
		}

		info, err := file.Info()
		if err != nil {
			s.logger.Warning("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		images = append(images, model.Image{
			Name:      strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())),
			Filename:  file.Name(),
			FilePath:  filepath.Join(s.imagesDir, file.Name()),
			FileSize:  info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	if len(images) == 0 {
		return 0, skipped, nil
	}

	inserted, err = s.imageRepo.InsertBatch(images)
	if err != nil {
		return inserted, skipped, fmt.Errorf("insert images: %w", err)
	}
	s.logger.Info("Backfilled %d images from %s", inserted, s.imagesDir)
	return inserted, skipped, nil
}
