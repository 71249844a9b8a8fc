package model

import "time"

// Image is the record of one saved frame. Records are append-only.
type Image struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	NetID      string    `json:"netId"`
	Year       string    `json:"year"`
	Filename   string    `json:"filename"`
	FilePath   string    `json:"filepath"`
	FileSize   int64     `json:"filesize"`
	Classifier string    `json:"classifier"`
	SessionID  string    `json:"sessionId"`
	CreatedAt  time.Time `json:"createdAt"`
}
