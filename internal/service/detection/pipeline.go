package detection

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	// ScaleFactor is how much the image is reduced at each cascade scale.
	ScaleFactor = 1.1
	// MinNeighbors is how many overlapping candidates a region needs to be kept.
	MinNeighbors = 2
	// CascadeScaleImage corresponds to OpenCV's CASCADE_SCALE_IMAGE flag.
	CascadeScaleImage = 2
	// MinSizeRatio is the share of the frame height used as the minimum feature size.
	MinSizeRatio = 0.2
	// BoxThickness is the stroke width of drawn detection boxes.
	BoxThickness = 3
)

// HighlightColor is the box colour, cyan on screen (BGR 255,255,0).
var HighlightColor = color.RGBA{R: 0, G: 255, B: 255, A: 0}

var ErrEmptyFrame = errors.New("empty frame")

// Cascade is the part of *gocv.CascadeClassifier the pipeline needs.
type Cascade interface {
	DetectMultiScaleWithParams(img gocv.Mat, scale float64, minNeighbors, flags int, minSize, maxSize image.Point) []image.Rectangle
}

// Sizing holds the minimum feature size for one acquisition session.
// It is derived from the first usable frame and then kept for the whole session.
type Sizing struct {
	minSize int
}

// NewSizing returns an unset sizing state.
func NewSizing() *Sizing {
	return &Sizing{}
}

// MinSize returns the current threshold in pixels, 0 while unset.
func (s *Sizing) MinSize() int {
	return s.minSize
}

func (s *Sizing) observe(frameHeight int) {
	if s.minSize != 0 {
		return
	}
	// Truncation floors: heights are never negative.
	if size := int(float64(frameHeight) * MinSizeRatio); size > 0 {
		s.minSize = size
	}
}

// Process detects regions in frame and draws a box around each one, in place.
// The returned rectangles are in frame coordinates. With no detections the frame is left untouched.
func Process(frame *gocv.Mat, cascade Cascade, sizing *Sizing) ([]image.Rectangle, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}
	if cascade == nil {
		return nil, errors.New("no classifier")
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if err := toGray(*frame, &gray); err != nil {
		return nil, err
	}
	if err := gocv.EqualizeHist(gray, &gray); err != nil {
		return nil, fmt.Errorf("equalize histogram: %w", err)
	}

	sizing.observe(gray.Rows())
	minSize := image.Point{X: sizing.minSize, Y: sizing.minSize}

	rects := cascade.DetectMultiScaleWithParams(gray, ScaleFactor, MinNeighbors, CascadeScaleImage, minSize, image.Point{})

	for _, r := range rects {
		if err := gocv.Rectangle(frame, r, HighlightColor, BoxThickness); err != nil {
			return rects, fmt.Errorf("draw detection box: %w", err)
		}
	}
	return rects, nil
}

func toGray(src gocv.Mat, dst *gocv.Mat) error {
	switch src.Channels() {
	case 1:
		if err := src.CopyTo(dst); err != nil {
			return fmt.Errorf("copy grayscale frame: %w", err)
		}
		return nil
	case 4:
		if err := gocv.CvtColor(src, dst, gocv.ColorBGRAToGray); err != nil {
			return fmt.Errorf("convert to grayscale: %w", err)
		}
		return nil
	default:
		if err := gocv.CvtColor(src, dst, gocv.ColorBGRToGray); err != nil {
			return fmt.Errorf("convert to grayscale: %w", err)
		}
		return nil
	}
}
