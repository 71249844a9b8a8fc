package display

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"facecam/internal/dto"
	"facecam/internal/logger"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func frameOf(value float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, value, value, 0), 30, 40, gocv.MatTypeCV8UC3)
}

func TestSlot_LatestWins(t *testing.T) {
	slot := NewSlot()
	defer slot.Close()

	_, _, ok := slot.Snapshot(0)
	require.False(t, ok)

	slot.Publish(frameOf(10))
	slot.Publish(frameOf(20))
	slot.Publish(frameOf(30))

	got, seq, ok := slot.Snapshot(0)
	require.True(t, ok)
	defer got.Close()
	require.Equal(t, uint64(3), seq)
	require.Equal(t, gocv.Vecb{30, 30, 30}, got.GetVecbAt(0, 0))

	_, same, ok := slot.Snapshot(seq)
	require.False(t, ok, "already rendered frame must not be returned again")
	require.Equal(t, seq, same)
}

func TestSlot_SnapshotIsPrivateCopy(t *testing.T) {
	slot := NewSlot()
	defer slot.Close()
	slot.Publish(frameOf(50))

	a, _, _ := slot.Snapshot(0)
	defer a.Close()
	a.SetTo(gocv.NewScalar(0, 0, 0, 0))

	b, _, _ := slot.Snapshot(0)
	defer b.Close()
	require.Equal(t, gocv.Vecb{50, 50, 50}, b.GetVecbAt(5, 5))
}

func TestSlot_ConcurrentReaders(t *testing.T) {
	slot := NewSlot()
	defer slot.Close()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for {
				select {
				case <-stop:
					return
				default:
				}
				if m, seq, ok := slot.Snapshot(last); ok {
					last = seq
					m.Close()
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		slot.Publish(frameOf(float64(i)))
	}
	close(stop)
	wg.Wait()
	require.Equal(t, uint64(50), slot.Seq())
}

func TestSlot_PublishAfterCloseIsDropped(t *testing.T) {
	slot := NewSlot()
	slot.Publish(frameOf(10))
	slot.Close()

	slot.Publish(frameOf(20))
	require.Equal(t, uint64(1), slot.Seq())

	_, _, ok := slot.Snapshot(0)
	require.False(t, ok)
}

func TestEncodeFrame(t *testing.T) {
	frame := frameOf(200)
	defer frame.Close()

	data, err := EncodeFrame(frame)
	require.NoError(t, err)

	var msg dto.FrameMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	require.Equal(t, dto.MessageFrame, msg.Type)

	raw, err := base64.StdEncoding.DecodeString(msg.Image)
	require.NoError(t, err)
	decoded, err := gocv.IMDecode(raw, gocv.IMReadColor)
	require.NoError(t, err)
	defer decoded.Close()
	require.Equal(t, 30, decoded.Rows())
	require.Equal(t, 40, decoded.Cols())
}

func TestFitWidth(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	scaled := FitWidth(frame, 600)
	defer scaled.Close()
	require.Equal(t, 600, scaled.Cols())
	require.Equal(t, 450, scaled.Rows())

	same := FitWidth(frame, 0)
	defer same.Close()
	require.Equal(t, 640, same.Cols())
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages [][]byte
	clients  int
}

func (b *fakeBroadcaster) Broadcast(message []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, message)
}

func (b *fakeBroadcaster) GetClientCount() int { return b.clients }

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages)
}

func TestStreamer_SendsEachFrameOnce(t *testing.T) {
	log, err := logger.New(t.TempDir())
	require.NoError(t, err)
	defer log.Close()

	slot := NewSlot()
	defer slot.Close()
	hub := &fakeBroadcaster{clients: 1}
	streamer := NewStreamer(slot, hub, time.Millisecond, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		streamer.Run(ctx)
		close(done)
	}()

	slot.Publish(frameOf(1))
	require.Eventually(t, func() bool { return hub.count() == 1 }, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, hub.count())

	slot.Publish(frameOf(2))
	require.Eventually(t, func() bool { return hub.count() == 2 }, time.Second, time.Millisecond)

	cancel()
	<-done
}

func TestStreamer_SkipsWithoutViewers(t *testing.T) {
	log, err := logger.New(t.TempDir())
	require.NoError(t, err)
	defer log.Close()

	slot := NewSlot()
	defer slot.Close()
	slot.Publish(frameOf(1))

	hub := &fakeBroadcaster{}
	streamer := NewStreamer(slot, hub, time.Millisecond, log)
	require.Equal(t, uint64(0), streamer.redraw(0))
	require.Zero(t, hub.count())
}
