package display

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"facecam/internal/dto"
	"facecam/internal/logger"

	"gocv.io/x/gocv"
)

// Broadcaster delivers encoded messages to browser viewers.
type Broadcaster interface {
	Broadcast(message []byte)
	GetClientCount() int
}

// Streamer redraws the newest frame to browser viewers on its own cadence.
type Streamer struct {
	slot     *Slot
	hub      Broadcaster
	interval time.Duration
	logger   *logger.Logger
}

func NewStreamer(slot *Slot, hub Broadcaster, interval time.Duration, logger *logger.Logger) *Streamer {
	return &Streamer{slot: slot, hub: hub, interval: interval, logger: logger}
}

// Run redraws until ctx is cancelled. Frames published between two redraws are skipped.
func (s *Streamer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = s.redraw(last)
		}
	}
}

func (s *Streamer) redraw(last uint64) uint64 {
	if s.hub.GetClientCount() == 0 {
		return last
	}

	frame, seq, ok := s.slot.Snapshot(last)
	if !ok {
		return last
	}
	defer frame.Close()

	message, err := EncodeFrame(frame)
	if err != nil {
		s.logger.Warning("Encoding frame for viewers: %v", err)
		return seq
	}
	s.hub.Broadcast(message)
	return seq
}

// EncodeFrame renders frame as a viewer message carrying a base64 JPEG.
func EncodeFrame(frame gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return json.Marshal(dto.FrameMessage{
		Type:  dto.MessageFrame,
		Image: base64.StdEncoding.EncodeToString(buf.GetBytes()),
	})
}
