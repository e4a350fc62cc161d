package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/fieldops/internal/config"
	"github.com/iliyamo/fieldops/internal/database"
	"github.com/iliyamo/fieldops/internal/handler"
	"github.com/iliyamo/fieldops/internal/middleware"
	"github.com/iliyamo/fieldops/internal/queue"
	"github.com/iliyamo/fieldops/internal/repository"
	"github.com/iliyamo/fieldops/internal/router"
	"github.com/iliyamo/fieldops/internal/service"
	"github.com/iliyamo/fieldops/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("dotenv: %v", err)
	}
	cfg := config.Load()

	db, dialect, err := openDB(cfg.DB)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(context.Background(), db, dialect); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	store, err := storage.NewDiskStore(cfg.StorageDir, cfg.UploadMaxBytes, cfg.UploadHandleTTL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	opts := []service.Option{
		service.WithObjectStore(store),
		service.WithWorkdayStart(cfg.WorkdayStart),
	}
	if cfg.EventsEnabled {
		url := queue.BrokerURL()
		opts = append(opts, service.WithPublisher(queue.NewRabbitPublisher(url)))
		go queue.NewConsumer(url, cfg.EventLogDir).Run()
	}
	svc := service.New(db, opts...)

	rdb := config.NewRedisClient()
	metrics := middleware.NewMetrics()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())

	users := repository.NewUserRepo(db)
	h := router.Handlers{
		Auth:           handler.NewAuthHandler(cfg, svc, users, repository.NewTokenRepo(db)),
		Users:          handler.NewUserHandler(svc, cfg.BcryptCost),
		Projects:       handler.NewProjectHandler(svc),
		Contractors:    handler.NewContractorHandler(svc),
		Communications: handler.NewCommunicationHandler(svc),
		Equipment:      handler.NewEquipmentHandler(svc),
		Inventory:      handler.NewInventoryHandler(svc),
		Purchases:      handler.NewPurchaseHandler(svc),
		Attendance:     handler.NewAttendanceHandler(svc),
		Quality:        handler.NewQualityHandler(svc),
		Reports:        handler.NewReportHandler(svc, metrics),
		Files:          handler.NewFileHandler(store, cfg.UploadMaxBytes),
	}
	ro := router.Options{
		JWTSecret: cfg.JWTSecret,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}
	router.RegisterPublic(e, handler.Health(db), h.Reports)
	router.RegisterAuth(e, h.Auth, ro)
	router.RegisterAPI(e, h, ro)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, db=%s)", addr, cfg.Env, dialect)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openDB(c config.DBConfig) (*sql.DB, database.Dialect, error) {
	if c.Driver == "sqlite" {
		db, err := database.OpenSQLite(c.Path)
		return db, database.SQLite, err
	}
	db, err := database.Open(c.User, c.Pass, c.Host, c.Port, c.Name)
	return db, database.MySQL, err
}
