package handler

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"facecam/internal/config"
	"facecam/internal/dto"
	"facecam/internal/logger"
	"facecam/internal/repository"
	"facecam/internal/service/storage"
)

// GetPicturesFromDBHandler returns the filtered, paginated list of saved frames.
func GetPicturesFromDBHandler(cfg *config.Config, logger *logger.Logger,
	imageRepo repository.ImageRepository, detectionRepo repository.DetectionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.ImageFilters{
			Name:       q.Get("name"),
			NetID:      q.Get("netid"),
			Year:       q.Get("year"),
			SessionID:  q.Get("session"),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
		}

		totalCount, err := imageRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting images: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		filter.Limit = limit
		filter.Offset = (page - 1) * limit
		images, err := imageRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying images from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalSize, err := imageRepo.GetDirectorySize()
		if err != nil {
			logger.Error("Error getting image directory size: %v", err)
			totalSize = 0
		}

		pictures := make([]dto.ImageInfo, 0, len(images))
		for _, img := range images {
			faces := 0
			if detectionRepo != nil {
				faces, err = detectionRepo.CountByImageID(img.ID)
				if err != nil {
					logger.Error("Error counting detections for image %d: %v", img.ID, err)
				}
			}

			pictures = append(pictures, dto.ImageInfo{
				Name:       img.Name,
				Filename:   img.Filename,
				NetID:      img.NetID,
				Year:       img.Year,
				Classifier: img.Classifier,
				Date:       img.CreatedAt.Local(),
				TimeOfDay:  img.CreatedAt.Local(),
				Faces:      faces,
			})
		}

		data := dto.ImagesData{
			Images:      pictures,
			ImagesDir:   cfg.ImageDirectory,
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewPictureHandler serves a single saved image given by the "name" query parameter.
func ViewPictureHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if err := storage.ValidateName(name); err != nil {
			http.Error(w, "Valid name parameter is required", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.ImageDirectory, name+cfg.ImageExtension))
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
