package display

import (
	"context"
	"image"
	"time"

	"facecam/internal/logger"

	"gocv.io/x/gocv"
)

// Window shows the newest frame in a native window. It must run on the main thread.
type Window struct {
	title    string
	width    int
	interval time.Duration
	slot     *Slot
	logger   *logger.Logger
}

func NewWindow(title string, width int, interval time.Duration, slot *Slot, logger *logger.Logger) *Window {
	return &Window{title: title, width: width, interval: interval, slot: slot, logger: logger}
}

// Run shows frames until ctx is cancelled or the user closes the window (or presses Esc or q).
// It returns true when the user closed the window.
func (w *Window) Run(ctx context.Context) bool {
	window := gocv.NewWindow(w.title)
	defer window.Close()

	delay := int(w.interval / time.Millisecond)
	if delay < 1 {
		delay = 1
	}

	var last uint64
	for {
		if ctx.Err() != nil {
			return false
		}

		if frame, seq, ok := w.slot.Snapshot(last); ok {
			last = seq
			scaled := FitWidth(frame, w.width)
			window.IMShow(scaled)
			scaled.Close()
			frame.Close()
		}

		key := window.WaitKey(delay)
		if key == 27 || key == 'q' {
			w.logger.Info("Display window closed by key")
			return true
		}
		if !window.IsOpen() || window.GetWindowProperty(gocv.WindowPropertyVisible) < 1 {
			w.logger.Info("Display window closed")
			return true
		}
	}
}

// FitWidth returns a copy of frame scaled to width, keeping the aspect ratio.
func FitWidth(frame gocv.Mat, width int) gocv.Mat {
	if width <= 0 || frame.Empty() || frame.Cols() == width {
		return frame.Clone()
	}

	height := frame.Rows() * width / frame.Cols()
	if height < 1 {
		height = 1
	}

	dst := gocv.NewMat()
	gocv.Resize(frame, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationArea)
	return dst
}
