package fleet

import (
	"bytes"
	"context"
	"testing"
	"time"

	"spool/internal/models"
)

func TestCameraIsolatedFailure(t *testing.T) {
	src := &fakeSource{devs: []models.Device{{Serial: "A"}, {Serial: "B"}}}
	cl := &fakeClient{frames: map[string][]byte{"A": []byte("jpegA")}} // камера B сломана
	c := NewCameraCache(src, cl, 50*time.Millisecond)

	c.loopOnce(context.Background(), src.devs[0], 1)
	c.loopOnce(context.Background(), src.devs[1], 1)

	frame, ok := c.Frame("A")
	if !ok || !bytes.Equal(frame, []byte("jpegA")) {
		t.Errorf("A frame lost: ok=%v frame=%q", ok, frame)
	}
	if _, ok := c.Frame("B"); ok {
		t.Error("B must be unavailable")
	}
}

func TestCameraSyncStopsRemovedDevice(t *testing.T) {
	src := &fakeSource{devs: []models.Device{{Serial: "A"}}}
	cl := &fakeClient{frames: map[string][]byte{"A": []byte("jpegA")}}
	c := NewCameraCache(src, cl, 10*time.Millisecond)
	defer c.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Sync(ctx, src.devs)
	// даём циклу сделать первый fetch
	deadline := time.Now().Add(time.Second)
	for {
		if _, ok := c.Frame("A"); ok || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := c.Frame("A"); !ok {
		t.Fatal("expected frame for A")
	}

	// устройство исчезло из флота — цикл гасится, кэш чистится
	c.Sync(ctx, nil)
	if _, ok := c.Frame("A"); ok {
		t.Error("frame must be dropped when device leaves the fleet")
	}
	c.mu.Lock()
	n := len(c.loops)
	c.mu.Unlock()
	if n != 0 {
		t.Errorf("expected 0 camera loops, got %d", n)
	}
}

func TestCameraRecovery(t *testing.T) {
	src := &fakeSource{devs: []models.Device{{Serial: "A"}}}
	cl := &fakeClient{frames: map[string][]byte{}}
	c := NewCameraCache(src, cl, 50*time.Millisecond)

	c.loopOnce(context.Background(), src.devs[0], 1)
	if _, ok := c.Frame("A"); ok {
		t.Fatal("frame must be absent after failure")
	}

	cl.frames["A"] = []byte("back")
	c.loopOnce(context.Background(), src.devs[0], 2)
	if frame, ok := c.Frame("A"); !ok || !bytes.Equal(frame, []byte("back")) {
		t.Errorf("camera must recover: ok=%v frame=%q", ok, frame)
	}
}
