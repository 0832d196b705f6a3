package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	awspkg "github.com/counterjob/backend/internal/aws"
	"github.com/counterjob/backend/internal/auth"
	"github.com/counterjob/backend/internal/cache"
	"github.com/counterjob/backend/internal/config"
	"github.com/counterjob/backend/internal/controllers"
	apperrors "github.com/counterjob/backend/internal/errors"
	"github.com/counterjob/backend/internal/logger"
	"github.com/counterjob/backend/internal/middleware"
	"github.com/counterjob/backend/internal/notify"
	"github.com/counterjob/backend/internal/repository"
	"github.com/counterjob/backend/internal/routes"
	"github.com/counterjob/backend/internal/scanner"
	"github.com/counterjob/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Initialize(cfg.Env)
	defer logger.Log.Sync() //nolint:errcheck
	log := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AWS is optional; every integration built on it degrades to a no-op.
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	if awsErr != nil {
		log.Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
	}
	if cfg.UseSecrets && awsErr == nil {
		cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}

	var logSink *awspkg.LogsWriter
	if awsErr == nil && cfg.CloudWatchEnabled && cfg.CloudWatchLogs != "" {
		logSink, err = awspkg.NewLogsWriter(ctx, awsCfg, cfg.CloudWatchLogs, "counterjob")
		if err != nil {
			log.Warn("CloudWatch Logs unavailable, logging locally only", zap.Error(err))
			logSink = nil
		} else {
			go logSink.Run(ctx)
			logger.InitializeWithWriter(cfg.Env, logSink)
			log = logger.Log
			log.Info("shipping logs to CloudWatch", zap.String("stream", logSink.Stream()))
		}
	}

	store, err := repository.OpenStore(ctx, repository.StoreOptions{
		Backend:     cfg.StoreBackend,
		MongoURL:    cfg.MongoURL,
		MongoDB:     cfg.MongoDB,
		DynamoTable: cfg.DDBTableProducts,
	})
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, running without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	var metrics *awspkg.MetricsClient
	if awsErr == nil {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNS, cfg.CloudWatchEnabled)
	}

	var productCache *cache.ProductCache
	var debounce scanner.Debouncer = scanner.NewMemoryDebouncer(cfg.ScanDebounce)
	if redisClient != nil {
		productCache = cache.NewProductCache(redisClient, cfg.ProductCacheTTL)
		debounce = scanner.NewRedisDebouncer(redisClient, cfg.ScanDebounce)
	}

	// DI chain
	productService := services.NewProductService(store.Products, productCache, metrics)
	cartService := services.NewCartService(store.Carts, productService)
	hooks, archive, mailer := checkoutHooks(cfg, awsCfg, awsErr, metrics, log)
	receiptService := services.NewReceiptService(store.Receipts)
	if archive != nil {
		receiptService.WithLinks(archive)
	}
	userService := services.NewUserService(
		store.Users,
		store.Carts,
		auth.NewTokenService(cfg.JWTSecret, cfg.SessionTTL),
		auth.NewGoogleVerifier(cfg.GoogleClientID),
	)
	// With a receipt queue, mail goes out from the SNS fan-out instead of
	// the checkout hooks.
	consumerDone := make(chan struct{})
	if mailer != nil && hooks.Events != nil && cfg.ReceiptQueueURL != "" {
		consumer := awspkg.NewSQSConsumer(awsCfg, cfg.ReceiptQueueURL)
		receiptMailer := services.NewReceiptMailer(store.Receipts, mailer)
		go func() {
			defer close(consumerDone)
			consumer.Start(ctx, receiptMailer.HandleCheckoutEvent)
		}()
	} else {
		close(consumerDone)
		if mailer != nil {
			hooks.Mailer = mailer
		}
	}
	checkoutService := services.NewCheckoutService(
		store.Carts,
		store.Products,
		store.Receipts,
		productService,
		cfg.TaxRate,
		hooks,
	)
	scanService := services.NewScanService(scanner.NewDecoder(), debounce, productService, receiptService, metrics)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	limiter := middleware.DefaultRateLimiter()
	go limiter.Sweep(ctx)
	r.Use(limiter.Middleware())
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterRoutes(r, routes.Handlers{
		Auth:     controllers.NewAuthController(userService),
		Products: controllers.NewProductController(productService),
		Cart:     controllers.NewCartController(cartService, checkoutService),
		Receipts: controllers.NewReceiptController(receiptService, productService),
		Scan:     controllers.NewScanController(scanService, cfg.MaxFrameBytes),
	}, userService, cfg.AdminAPIKey)

	if cfg.AdminAPIKey == "" {
		log.Warn("ADMIN_API_KEY not set, catalog maintenance routes are disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("CounterJob started",
		zap.String("port", cfg.Port),
		zap.String("store_backend", cfg.StoreBackend),
		zap.Bool("redis", redisClient != nil),
	)
	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	checkoutService.Drain()
	<-consumerDone
	log.Info("Server exited cleanly")

	if logSink != nil {
		flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelFlush()
		logSink.Flush(flushCtx)
	}
}

// checkoutHooks wires the optional post-checkout integrations. Interfaces are
// only set when the backing client exists so nil checks in the service hold.
// The mail sender is returned separately; the caller decides whether it runs
// in-process or behind the receipt queue.
func checkoutHooks(cfg *config.Config, awsCfg sdkaws.Config, awsErr error, metrics *awspkg.MetricsClient, log *zap.Logger) (services.CheckoutHooks, *awspkg.ObjectArchiver, notify.EmailSender) {
	var archive *awspkg.ObjectArchiver
	var mailer notify.EmailSender
	hooks := services.CheckoutHooks{TopicArn: cfg.SNSTopicArn}
	if metrics != nil {
		hooks.Metrics = metrics
	}

	if awsErr == nil {
		if cfg.SNSTopicArn != "" {
			hooks.Events = awspkg.NewSNSClient(awsCfg)
		}
		if cfg.ReceiptBucket != "" {
			archive = awspkg.NewObjectArchiver(awspkg.NewS3Client(awsCfg), cfg.ReceiptBucket, cfg.ReceiptPrefix)
			hooks.Archive = archive
		}
	}

	if cfg.SMTPHost != "" {
		sender, err := notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
		if err != nil {
			log.Warn("SMTP disabled", zap.Error(err))
		} else {
			mailer = sender
		}
	}
	return hooks, archive, mailer
}
