package dto

import (
	"encoding/json"
	"time"
)

// ImageInfo is the gallery view of a saved frame.
type ImageInfo struct {
	Name       string    `json:"name"`
	Filename   string    `json:"filename"`
	NetID      string    `json:"netId"`
	Year       string    `json:"year"`
	Classifier string    `json:"classifier"`
	Date       time.Time `json:"date"`
	TimeOfDay  time.Time `json:"timeOfDay"`
	Faces      int       `json:"faces"` // Number of detected regions
}

// MarshalJSON customizes JSON output for ImageInfo to format date and time-of-day.
func (p ImageInfo) MarshalJSON() ([]byte, error) {
	type Alias ImageInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04"),
		Alias:     (Alias)(p),
	})
}
