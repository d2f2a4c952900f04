package main

import (
	"context"
	"memorylane/auth"
	"memorylane/config"
	"memorylane/db"
	"memorylane/events"
	"memorylane/handlers"
	"memorylane/lanes"
	"memorylane/logger"
	"memorylane/models"
	"memorylane/processing"
	"memorylane/repository"
	"memorylane/storage"
	"memorylane/utils"
	"memorylane/web"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	gormsessions "github.com/gin-contrib/sessions/gorm"
	"github.com/gin-gonic/autotls"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "memorylane"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(serviceName, true)
		bootLog.Fatal().Err(err).Msg("Invalid configuration")
	}
	log := logger.New(serviceName, cfg.DebugMode)
	if cfg.SessionKeyGenerated {
		log.Warn().Msg("MEMORYLANE_SESSION_KEY is not set, sessions will not survive a restart")
	}

	database, err := db.Open(cfg.MySQLDSN, cfg.SQLiteFile, cfg.DebugMode)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not open database")
	}
	if err = models.Init(database); err != nil {
		log.Fatal().Err(err).Msg("Auto-migrate error")
	}
	store, err := storage.New(storage.NewBucket(cfg.Storage))
	if err != nil {
		log.Fatal().Err(err).Msg("Could not initialise storage")
	}
	images := storage.NewImageStore(store, log,
		storage.WithAttempts(cfg.UploadAttempts),
		storage.WithBaseDelay(cfg.UploadBaseDelay),
	)
	repo := repository.New(database)

	var publisher events.Publisher = events.NewLogPublisher(log)
	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := events.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Could not connect to redis")
		}
		publisher = events.NewRedisPublisher(client, cfg.InvalidationChannel)
	}
	service := lanes.NewService(repo, images, log, lanes.WithPublisher(publisher))
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTExpire)

	if cfg.OrphanSweepSchedule != "" {
		sweeper := processing.NewSweeper(store, repo, cfg.OrphanGrace, log)
		if _, err = sweeper.Start(cfg.OrphanSweepSchedule); err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.OrphanSweepSchedule).Msg("Invalid orphan sweep schedule")
		}
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.Middleware(log))
	_ = router.SetTrustedProxies([]string{})
	if cfg.DebugMode {
		router.Use(utils.ErrorLogMiddleware(log))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOriginList(),
		AllowMethods:     []string{"GET", "PUT", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           30 * 24 * time.Hour,
	}))

	cookieStore := gormsessions.NewStore(database, true, []byte(cfg.SessionKey))
	cookieStore.Options(sessions.Options{Path: "/", MaxAge: cfg.SessionMaxAge, HttpOnly: true})
	router.Use(sessions.Sessions(cfg.SessionCookie, cookieStore))
	if !cfg.DebugMode {
		router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{lanes.FilesPrefix, "/metrics"})))
	}
	router.Use((&utils.CacheRouter{CacheTime: utils.CacheNoCache}).Handler()) // No cache by default, individual end-points can override that
	// Custom Auth Router
	authRouter := &auth.Router{Base: router, Auth: auth.New(repo, tokens, log), Owners: service}
	(&handlers.Handlers{Lanes: service, Users: repo, Tokens: tokens, Log: log}).Register(authRouter)
	(&web.Files{Lanes: service, Log: log}).Register(authRouter)
	// Misc
	router.GET("/robots.txt", web.DisallowRobots)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if domains := cfg.TLSDomainList(); len(domains) > 0 {
		err = autotls.Run(router, domains...)
	} else {
		err = router.Run(cfg.BindAddress)
	}
	log.Fatal().Err(err).Msg("Server stopped")
}
