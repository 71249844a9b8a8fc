package repository

import (
	"facecam/internal/dto"
	"facecam/internal/model"
)

// ImageRepository defines the interface for saved image records.
// Records are only ever added.
type ImageRepository interface {
	// Create operations
	Insert(img *model.Image) (int64, error)
	InsertBatch(images []model.Image) (int, error)

	// Read operations
	GetByID(id int64) (*model.Image, error)
	GetLatestByFilename(filename string) (*model.Image, error)
	GetAll(filter *dto.ImageFilters) ([]model.Image, error)
	GetTotalCount(filter *dto.ImageFilters) (int, error)
	GetDirectorySize() (int64, error)
	ExistsFilename(filename string) (bool, error)
}

// DetectionRepository defines the interface for detected regions of saved images.
type DetectionRepository interface {
	// Create operations
	Insert(det *model.Detection) (int64, error)
	InsertBatch(detections []model.Detection) error

	// Read operations
	GetByImageID(imageID int64) ([]model.Detection, error)
	CountByImageID(imageID int64) (int, error)
}
