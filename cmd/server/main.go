package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/config"
	"github.com/iliyamo/course-marketplace/internal/database"
	"github.com/iliyamo/course-marketplace/internal/handler"
	"github.com/iliyamo/course-marketplace/internal/media"
	"github.com/iliyamo/course-marketplace/internal/queue"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/router"
	"github.com/iliyamo/course-marketplace/internal/service"
	"github.com/iliyamo/course-marketplace/internal/token"
)

func main() {
	// Load .env first so config.Load sees local overrides; absence is fine
	// in deployed environments where variables come from the platform.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		// The session cache gates token refresh; without it nobody can
		// stay logged in, so refuse to start.
		log.Fatal("redis connection failed")
	}
	sessions := cache.New(rdb)

	issuer := token.Issuer{
		AccessSecret:     cfg.AccessSecret,
		RefreshSecret:    cfg.RefreshSecret,
		ActivationSecret: cfg.ActivationSecret,
		AccessTTL:        time.Duration(cfg.AccessTTLMin) * time.Minute,
		RefreshTTL:       time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
		ActivationTTL:    time.Duration(cfg.ActivationTTLMin) * time.Minute,
	}

	uploads, err := media.NewS3Store(cfg)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	users := repository.NewUserRepo(db)
	courses := repository.NewCourseRepo(db)
	orders := repository.NewOrderRepo(db)
	notifications := repository.NewNotificationRepo(db)

	mail := service.QueueMailer{}

	authHandler := handler.NewAuthHandler(cfg, users, sessions, issuer, mail)
	userHandler := handler.NewUserHandler(cfg, users, sessions, uploads)
	courseHandler := handler.NewCourseHandler(courses, sessions, uploads)
	orderHandler := handler.NewOrderHandler(users, courses, orders, notifications, sessions, mail)

	// Mail deliveries are consumed off the broker in the background.
	go func() {
		if err := queue.StartMailConsumer(); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAPI(e, authHandler, userHandler, courseHandler, orderHandler, issuer, sessions)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
