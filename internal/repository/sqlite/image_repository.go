package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"facecam/internal/dto"
	"facecam/internal/model"
)

const imageColumns = `id, name, net_id, year, filename, filepath, filesize, classifier, session_id, created_at`

// ImageRepository implements repository.ImageRepository for SQLite.
type ImageRepository struct {
	db *DB
}

// NewImageRepository creates a new SQLite image repository.
func NewImageRepository(db *DB) *ImageRepository {
	return &ImageRepository{db: db}
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertImage(e execer, img *model.Image) (int64, error) {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = time.Now()
	}
	result, err := e.Exec(`
		INSERT INTO images (name, net_id, year, filename, filepath, filesize, classifier, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, img.Name, img.NetID, img.Year, img.Filename, img.FilePath, img.FileSize, img.Classifier, img.SessionID, img.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert image: %w", err)
	}
	return result.LastInsertId()
}

// Insert adds a new image record to the database.
func (r *ImageRepository) Insert(img *model.Image) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	id, err := insertImage(r.db.Conn(), img)
	if err != nil {
		return 0, err
	}
	img.ID = id
	return id, nil
}

// InsertBatch adds multiple image records in a single transaction and returns how many were added.
func (r *ImageRepository) InsertBatch(images []model.Image) (int, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range images {
		id, err := insertImage(tx, &images[i])
		if err != nil {
			return 0, err
		}
		images[i].ID = id
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit images: %w", err)
	}
	return len(images), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanImage(s scanner) (model.Image, error) {
	var img model.Image
	err := s.Scan(&img.ID, &img.Name, &img.NetID, &img.Year, &img.Filename, &img.FilePath,
		&img.FileSize, &img.Classifier, &img.SessionID, &img.CreatedAt)
	return img, err
}

// GetByID retrieves an image by its ID.
func (r *ImageRepository) GetByID(id int64) (*model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	img, err := scanImage(r.db.Conn().QueryRow(`SELECT `+imageColumns+` FROM images WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &img, nil
}

// GetLatestByFilename retrieves the newest record for a file. Saving under an
// existing name overwrites the file, so only the newest record describes its content.
func (r *ImageRepository) GetLatestByFilename(filename string) (*model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	img, err := scanImage(r.db.Conn().QueryRow(`
		SELECT `+imageColumns+` FROM images
		WHERE filename = ?
		ORDER BY id DESC LIMIT 1
	`, filename))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &img, nil
}

func buildWhere(filter *dto.ImageFilters) (string, []any) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter == nil {
		return where, args
	}

	if filter.Name != "" {
		where += " AND name LIKE ?"
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.NetID != "" {
		where += " AND net_id = ?"
		args = append(args, filter.NetID)
	}
	if filter.Year != "" {
		where += " AND year = ?"
		args = append(args, filter.Year)
	}
	if filter.SessionID != "" {
		where += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if !filter.DateAfter.IsZero() {
		where += " AND created_at >= ?"
		args = append(args, filter.DateAfter.UTC())
	}
	if !filter.DateBefore.IsZero() {
		// Inclusive of the whole day.
		where += " AND created_at < ?"
		args = append(args, filter.DateBefore.AddDate(0, 0, 1).UTC())
	}
	return where, args
}

// GetAll retrieves images based on filter criteria, newest first.
func (r *ImageRepository) GetAll(filter *dto.ImageFilters) ([]model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)
	query := `SELECT ` + imageColumns + ` FROM images` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}

	return images, rows.Err()
}

// GetTotalCount returns the total count of images matching the filter.
func (r *ImageRepository) GetTotalCount(filter *dto.ImageFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM images`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

// GetDirectorySize returns the size of the saved files in bytes, counting each file once.
func (r *ImageRepository) GetDirectorySize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	err := r.db.Conn().QueryRow(`
		SELECT COALESCE(SUM(filesize), 0) FROM images
		WHERE id IN (SELECT MAX(id) FROM images GROUP BY filename)
	`).Scan(&size)
	if err != nil {
		return 0, fmt.Errorf("failed to sum image sizes: %w", err)
	}
	return size, nil
}

// ExistsFilename checks if any record refers to filename.
func (r *ImageRepository) ExistsFilename(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM images WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check image existence: %w", err)
	}
	return count > 0, nil
}
