package model

import "image"

// Detection is one region found in a saved frame, in pixel coordinates.
type Detection struct {
	ID      int64 `json:"id"`
	ImageID int64 `json:"imageId"`
	X       int   `json:"x"`
	Y       int   `json:"y"`
	Width   int   `json:"width"`
	Height  int   `json:"height"`
}

// DetectionFromRect converts a detected rectangle of image imageID.
func DetectionFromRect(imageID int64, r image.Rectangle) Detection {
	return Detection{ImageID: imageID, X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the region as an image.Rectangle.
func (d Detection) Rect() image.Rectangle {
	return image.Rect(d.X, d.Y, d.X+d.Width, d.Y+d.Height)
}
