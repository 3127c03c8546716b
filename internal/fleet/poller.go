package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"spool/internal/logs"
	"spool/internal/middleware"
	"spool/internal/models"
)

// DeviceSource — то, что нужно циклам опроса от хранилища устройств.
// Реализуется repo.DeviceStore.
type DeviceSource interface {
	List(ctx context.Context) ([]models.Device, error)
	AccessCode(d *models.Device) (string, error)
}

// Poller периодически опрашивает телеметрию всего флота. Каждый тик
// собирает полный снапшот и подменяет предыдущий атомарно — частичных
// слияний между тиками нет. Упавший тик оставляет прошлый снапшот
// (stale-but-available), это не фатально.
type Poller struct {
	devices DeviceSource
	client  PrinterClient
	timeout time.Duration
	log     *logrus.Entry

	// вызывается на каждом тике со свежим списком устройств
	// (камеры подхватывают появившиеся/исчезнувшие принтеры)
	onDevices func([]models.Device)

	mu       sync.RWMutex
	snapshot []models.DeviceStatus
	lastPoll time.Time
}

// OnDevices регистрирует hook на список устройств тика. Зовётся до Run.
func (p *Poller) OnDevices(fn func([]models.Device)) { p.onDevices = fn }

func NewPoller(ds DeviceSource, client PrinterClient, requestTimeout time.Duration) *Poller {
	return &Poller{
		devices:  ds,
		client:   client,
		timeout:  requestTimeout,
		log:      logs.WithComponent("poller"),
		snapshot: []models.DeviceStatus{},
	}
}

// Run крутит цикл опроса до отмены ctx. Первый тик — сразу, не ждём
// интервала.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	p.pollOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// Snapshot — текущее состояние флота (копия, для отдачи наружу).
func (p *Poller) Snapshot() []models.DeviceStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.DeviceStatus, len(p.snapshot))
	copy(out, p.snapshot)
	return out
}

// LastPoll — время последнего успешного тика (нулевое — ещё не было).
func (p *Poller) LastPoll() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastPoll
}

func (p *Poller) pollOnce(ctx context.Context) {
	devs, err := p.devices.List(ctx)
	if err != nil {
		// прошлый снапшот не трогаем
		middleware.PollFailuresTotal.Inc()
		p.log.Warnf("poll tick failed: %v", err)
		return
	}
	if p.onDevices != nil {
		p.onDevices(devs)
	}

	statuses := make([]models.DeviceStatus, len(devs))
	var wg sync.WaitGroup
	for i := range devs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = p.pollDevice(ctx, &devs[i])
		}(i)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// снапшот после отмены не применяем
		return
	}

	online := 0
	for _, st := range statuses {
		if st.Online {
			online++
		}
	}
	middleware.DevicesOnline.Set(float64(online))

	p.mu.Lock()
	p.snapshot = statuses
	p.lastPoll = time.Now().UTC()
	p.mu.Unlock()
}

func (p *Poller) pollDevice(ctx context.Context, dev *models.Device) models.DeviceStatus {
	st := models.DeviceStatus{
		Serial:         dev.Serial,
		Name:           dev.Name,
		Model:          dev.Model,
		NozzleDiameter: dev.NozzleDiameter,
	}

	code, err := p.devices.AccessCode(dev)
	if err != nil {
		p.log.Warnf("device %s: access code: %v", dev.Serial, err)
		return st
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	raw, err := p.client.Status(cctx, dev, code)
	if err != nil {
		p.log.Debugf("device %s offline: %v", dev.Serial, err)
		return st
	}

	st.Online = true
	st.CurrentTask = normalizeTask(raw.Task)
	return st
}
