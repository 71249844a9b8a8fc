package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"facecam/internal/dto"
	"facecam/internal/logger"
	"facecam/internal/model"
	"facecam/internal/service/acquisition"
	"facecam/internal/service/classifier"
	"facecam/internal/service/storage"
)

// CameraController is the set of user actions the acquisition core accepts.
type CameraController interface {
	Start() error
	Stop() error
	Toggle() error
	Save(meta storage.Meta) (*model.Image, error)
	SelectClassifier(variant classifier.Variant) error
	Status() dto.Status
}

// ViewerCounter reports how many browser viewers are connected.
type ViewerCounter interface {
	GetClientCount() int
}

type saveResponse struct {
	Saved bool         `json:"saved"`
	Image *model.Image `json:"image,omitempty"`
}

// CameraStatusHandler handles GET /api/camera/status.
func CameraStatusHandler(camera CameraController, viewers ViewerCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		status := camera.Status()
		if viewers != nil {
			status.Viewers = viewers.GetClientCount()
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// CameraActionHandler handles POST /api/camera/{start,stop,toggle} and responds with the new status.
func CameraActionHandler(camera CameraController, action func() error, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := action(); err != nil {
			logger.Warning("Camera action %s failed: %v", r.URL.Path, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, camera.Status())
	}
}

// SaveFrameHandler handles POST /api/camera/save with form fields name, netid and year
// or the same metadata as a JSON body.
func SaveFrameHandler(camera CameraController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req dto.SaveRequest
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid JSON body", http.StatusBadRequest)
				return
			}
		} else {
			req = dto.SaveRequest{Name: r.FormValue("name"), NetID: r.FormValue("netid"), Year: r.FormValue("year")}
		}

		meta := storage.Meta{Name: req.Name, NetID: req.NetID, Year: req.Year}
		img, err := camera.Save(meta)
		if err != nil {
			logger.Warning("Save %q failed: %v", meta.Name, err)
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saveResponse{Saved: img != nil, Image: img})
	}
}

// SelectClassifierHandler handles POST /api/classifier/{haar,lbp}.
func SelectClassifierHandler(camera CameraController, variant classifier.Variant, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := camera.SelectClassifier(variant); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, camera.Status())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, acquisition.ErrNoClassifier), errors.Is(err, acquisition.ErrSelectionLocked):
		return http.StatusConflict
	case errors.Is(err, acquisition.ErrDeviceOpen), errors.Is(err, acquisition.ErrNoFrame),
		errors.Is(err, acquisition.ErrStopPending):
		return http.StatusServiceUnavailable
	case errors.Is(err, classifier.ErrModelLoad):
		return http.StatusUnprocessableEntity
	case errors.Is(err, acquisition.ErrClosed):
		return http.StatusGone
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
