package sqlite

import (
	"fmt"

	"facecam/internal/model"
)

// DetectionRepository stores the regions detected in saved frames.
type DetectionRepository struct {
	db *DB
}

func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

const insertDetectionSQL = `INSERT INTO detections (image_id, x, y, width, height) VALUES (?, ?, ?, ?, ?)`

func insertDetection(e execer, det *model.Detection) (int64, error) {
	result, err := e.Exec(insertDetectionSQL, det.ImageID, det.X, det.Y, det.Width, det.Height)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection for image %d: %w", det.ImageID, err)
	}
	return result.LastInsertId()
}

func (r *DetectionRepository) Insert(det *model.Detection) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	id, err := insertDetection(r.db.Conn(), det)
	if err != nil {
		return 0, err
	}
	det.ID = id
	return id, nil
}

// InsertBatch stores all regions of one save atomically.
func (r *DetectionRepository) InsertBatch(detections []model.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range detections {
		id, err := insertDetection(tx, &detections[i])
		if err != nil {
			return err
		}
		detections[i].ID = id
	}
	return tx.Commit()
}

// GetByImageID returns the regions of an image in the order they were detected.
func (r *DetectionRepository) GetByImageID(imageID int64) ([]model.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(
		`SELECT id, image_id, x, y, width, height FROM detections WHERE image_id = ? ORDER BY id`, imageID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []model.Detection
	for rows.Next() {
		var d model.Detection
		if err := rows.Scan(&d.ID, &d.ImageID, &d.X, &d.Y, &d.Width, &d.Height); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, d)
	}
	return detections, rows.Err()
}

func (r *DetectionRepository) CountByImageID(imageID int64) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM detections WHERE image_id = ?`, imageID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return count, nil
}
