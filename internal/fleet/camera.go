package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"spool/internal/logs"
	"spool/internal/middleware"
	"spool/internal/models"
)

const maxCameraEntries = 256

// CameraCache держит последний кадр камеры каждого принтера.
// Один цикл на устройство, со своим интервалом — отдельным от цикла
// телеметрии: сломанная камера не тормозит опрос флота и наоборот.
// Отказ камеры одного устройства виден как "unavailable" только для него.
type CameraCache struct {
	devices  DeviceSource
	client   PrinterClient
	interval time.Duration
	frames   *expirable.LRU[string, []byte]
	log      *logrus.Entry

	mu    sync.Mutex
	loops map[string]context.CancelFunc
}

func NewCameraCache(ds DeviceSource, client PrinterClient, interval time.Duration) *CameraCache {
	// TTL кадра — 3 интервала: пара пропущенных тиков ещё не гасит картинку
	return &CameraCache{
		devices:  ds,
		client:   client,
		interval: interval,
		frames:   expirable.NewLRU[string, []byte](maxCameraEntries, nil, 3*interval),
		log:      logs.WithComponent("camera"),
		loops:    map[string]context.CancelFunc{},
	}
}

// Sync сверяет набор камер с переданным списком флота: заводит циклы для
// новых устройств, останавливает и чистит кэш исчезнувших.
func (c *CameraCache) Sync(ctx context.Context, devs []models.Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	want := make(map[string]models.Device, len(devs))
	for _, d := range devs {
		want[d.Serial] = d
	}

	for serial, cancel := range c.loops {
		if _, ok := want[serial]; !ok {
			cancel()
			delete(c.loops, serial)
			c.frames.Remove(serial)
		}
	}

	for serial, dev := range want {
		if _, running := c.loops[serial]; running {
			continue
		}
		lctx, cancel := context.WithCancel(ctx)
		c.loops[serial] = cancel
		go c.loop(lctx, dev)
	}
}

// Frame — последний кадр устройства. false — камера недоступна
// (ни одного свежего кадра).
func (c *CameraCache) Frame(serial string) ([]byte, bool) {
	return c.frames.Get(serial)
}

// Stop гасит все циклы (выключение сервиса).
func (c *CameraCache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for serial, cancel := range c.loops {
		cancel()
		delete(c.loops, serial)
	}
}

func (c *CameraCache) loop(ctx context.Context, dev models.Device) {
	var seq uint64

	seq++
	c.loopOnce(ctx, dev, seq)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq++
			c.loopOnce(ctx, dev, seq)
		}
	}
}

// loopOnce — один запрос кадра. seq идёт в запрос как cache-busting токен.
func (c *CameraCache) loopOnce(ctx context.Context, dev models.Device, seq uint64) {
	code, err := c.devices.AccessCode(&dev)
	if err != nil {
		c.log.Warnf("camera %s: access code: %v", dev.Serial, err)
		return
	}
	cctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()
	frame, err := c.client.Snapshot(cctx, &dev, code, seq)
	if err != nil {
		// локальный отказ: убираем кадр этого устройства, остальные не трогаем
		c.frames.Remove(dev.Serial)
		middleware.CameraFailuresTotal.WithLabelValues(dev.Serial).Inc()
		c.log.Debugf("camera %s unavailable: %v", dev.Serial, err)
		return
	}
	c.frames.Add(dev.Serial, frame)
}
