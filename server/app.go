package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spool/config"
	"spool/internal/db"
	"spool/internal/fleet"
	"spool/internal/health"
	"spool/internal/library"
	"spool/internal/logs"
	"spool/internal/middleware"
	"spool/internal/models"
	"spool/internal/prefs"
	"spool/internal/repo"
	"spool/internal/secrets"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	httpServer *http.Server

	poller *fleet.Poller
	camera *fleet.CameraCache

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB (опционально) */
	if drv := a.cfg.Database.Driver; drv != "" {
		d, err := db.Open(drv, a.cfg.Database.DSN)
		if err != nil {
			log.Fatalf("db open failed: %v", err)
		}
		a.db = d

		if err := a.db.AutoMigrate(&models.Device{},
			&models.LibraryFile{},
			&models.Pref{}); err != nil {
			log.Fatalf("db migrate failed: %v", err)
		}
	}

	/* 3) Доменные сервисы */
	creds := secrets.New(a.cfg.Auth.CredsKey)
	ds := repo.NewDeviceStore(a.db, creds)
	ls := repo.NewLibraryStore(a.db)
	ps := repo.NewPrefStore(a.db)

	client := fleet.NewHTTPPrinterClient(a.cfg.Fleet.RequestTimeout)
	a.poller = fleet.NewPoller(ds, client, a.cfg.Fleet.RequestTimeout)
	a.camera = fleet.NewCameraCache(ds, client, a.cfg.Fleet.CameraInterval)

	autotag := library.NewAutoTagClient(a.cfg.AutoTag.URL, a.cfg.AutoTag.Timeout)
	libSvc := library.NewService(ls, a.cfg.Library.Root, a.cfg.Library.MaxUploadBytes, autotag)

	normalizer := library.LooseNormalizer
	if a.cfg.Library.NameNormalizing == "exact" {
		normalizer = library.ExactNormalizer
	}

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
		middleware.MetricsMW,
	)

	/* 5) Открытые эндпоинты: health + metrics */
	if a.db != nil {
		health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz
	} else {
		health.RegisterRoutes(a.Router) // только /healthz
	}
	a.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	/* 6) API — за сессионной авторизацией */
	api := a.Router.PathPrefix("/api").Subrouter()
	api.Use(middleware.SessionAuth(a.cfg.Auth.SessionToken))

	fleet.RegisterRoutes(api, fleet.NewHandler(ds, a.poller, a.camera))
	library.RegisterRoutes(api, library.NewHandler(libSvc, normalizer))
	prefs.RegisterRoutes(api, prefs.NewHandler(ps))

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Фоновые циклы: телеметрия тянет за собой реконсиляцию камер.
	a.poller.OnDevices(func(devs []models.Device) {
		a.camera.Sync(a.ctx, devs)
	})
	go a.poller.Run(a.ctx, a.cfg.Fleet.PollInterval)

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()
	a.camera.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
