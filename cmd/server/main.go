package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/event-service/docs"
	"github.com/tazhibayda/event-service/internal/auth"
	"github.com/tazhibayda/event-service/internal/config"
	"github.com/tazhibayda/event-service/internal/event"
	api "github.com/tazhibayda/event-service/internal/http"
	"github.com/tazhibayda/event-service/internal/log"
	"github.com/tazhibayda/event-service/internal/mail"
	"github.com/tazhibayda/event-service/internal/metrics"
	"github.com/tazhibayda/event-service/internal/notify"
	"github.com/tazhibayda/event-service/internal/otp"
	"github.com/tazhibayda/event-service/internal/queue"
	"github.com/tazhibayda/event-service/internal/relay"
	"github.com/tazhibayda/event-service/internal/repo"
	"github.com/tazhibayda/event-service/internal/security"
	"github.com/tazhibayda/event-service/internal/storage"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// @title Doux Event API
// @version 0.1.0
// @description Accounts, email verification and event management.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DDEnabled {
		tracer.Start(tracer.WithService(cfg.DDService))
		defer tracer.Stop()
	}
	if cfg.LogProd {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.MustRegister()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())
	store.TokenHistoryLimit = cfg.TokenHistoryLimit
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	// no key material, no tokens: refuse to start
	keys, err := security.NewKeyManager(cfg.KeyID, cfg.PrivateKeyPath, cfg.PublicKeyPath)
	if err != nil {
		logger.Fatal("load signing keys", zap.Error(err))
	}
	tokens := security.NewTokenService(keys, store, time.Duration(cfg.TokenTTLHours)*time.Hour)

	var cache *repo.Redis
	if cfg.RedisAddr != "" {
		cache = repo.NewRedis(cfg.RedisAddr, time.Duration(cfg.UserCacheTTLSeconds)*time.Second)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, user cache disabled", zap.Error(err))
			_ = cache.Close()
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	var pub queue.Publisher = queue.NewNoop()
	if cfg.RabbitURL != "" {
		rp, err := queue.NewRabbit(cfg.RabbitURL, queue.AuthExchange, cfg.RabbitExchange)
		if err != nil {
			logger.Warn("rabbit unavailable, domain events disabled", zap.Error(err))
		} else {
			pub = rp
		}
	}
	defer pub.Close()

	images, err := newImageStore(ctx, cfg)
	if err != nil {
		logger.Fatal("image storage", zap.Error(err))
	}

	opts := auth.Options{
		Users:       store,
		Tokens:      tokens,
		OTP:         otp.NewManager(time.Duration(cfg.OTPTTLMinutes) * time.Minute),
		Mail:        newNotifier(cfg, pub, logger),
		Events:      pub,
		Log:         logger.Named("auth"),
		SenderLabel: cfg.MailSenderLabel,
	}
	if cache != nil {
		opts.Invalidate = func(ctx context.Context, id string) {
			if err := cache.DelUser(ctx, id); err != nil {
				logger.Warn("user cache invalidate", zap.Error(err))
			}
		}
	}
	authSvc := auth.NewService(opts)
	eventSvc := event.NewService(store, images, logger.Named("event"))

	hub := relay.NewHub(logger.Named("relay"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	h := &api.Handler{
		Auth:        authSvc,
		Events:      eventSvc,
		Tokens:      tokens,
		Keys:        keys,
		Store:       store,
		Hub:         hub,
		TraceOn:     cfg.DDEnabled,
		ServiceName: cfg.DDService,
	}
	if cache != nil {
		h.Cache = cache
	}
	if cfg.OTPRateLimit > 0 {
		h.OTPLimiter = api.NewRateLimiter(cfg.OTPRateLimit, time.Minute)
	}
	if cfg.StorageBackend != "s3" {
		h.UploadDir = cfg.UploadDir
	}

	docs.SwaggerInfo.BasePath = "/"
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()
	logger.Info("event-service listening", zap.String("port", cfg.Port),
		zap.String("mail_transport", cfg.MailTransport), zap.String("storage", cfg.StorageBackend))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	stopHub()
	<-hub.Done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func newImageStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	return storage.NewDisk(cfg.UploadDir)
}

func newNotifier(cfg config.Config, pub queue.Publisher, logger *zap.Logger) notify.Sender {
	smtp := mail.NewSMTP(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	})
	return notify.New(cfg.MailTransport, pub, cfg.RabbitExchange, smtp, logger.Named("notify"))
}
