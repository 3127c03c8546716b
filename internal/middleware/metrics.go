package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP-метрики
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spool_http_requests_total",
			Help: "Общее количество HTTP-запросов",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spool_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (обновляются из fleet/library)
var (
	DevicesOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spool_devices_online",
		Help: "Количество принтеров online по последнему опросу",
	})
	PollFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spool_poll_failures_total",
		Help: "Количество неудачных тиков опроса телеметрии",
	})
	CameraFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spool_camera_failures_total",
		Help: "Количество неудачных запросов снапшота камеры",
	}, []string{"device"})
	LibraryFilesTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spool_library_files_total",
		Help: "Количество файлов в библиотеке",
	})
)

// MetricsMW собирает счётчик и гистограмму по каждому запросу.
// Лейбл path — шаблон маршрута mux ({id} вместо значения), чтобы не
// взрывать кардинальность.
func MetricsMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		status := sw.status
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
