package main

import (
	"log/slog"
	"os"
	"time"

	"mypalette/config"
	"mypalette/database"
	routes "mypalette/internal/app/http"
	"mypalette/internal/curation"
	"mypalette/internal/domain/pricing"
	"mypalette/internal/infra/events"
	"mypalette/internal/infra/logger"
	"mypalette/internal/infra/ratelimit"
	"mypalette/internal/infra/stripe"
	"mypalette/internal/store"
	"mypalette/internal/workflow"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadEnv()

	log := logger.New(config.APP_ENV)
	slog.SetDefault(log)
	if config.APP_ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.InitDB(config.DB_URL, config.APP_ENV, log)

	profiles := store.NewProfiles(db)
	calls := store.NewOpenCalls(db)
	subs := store.NewSubmissions(db)

	publisher := events.NewPublisher(config.RABBITMQ_URL, log)
	defer publisher.Close()

	rdb := ratelimit.NewRedisClient(config.REDIS_ADDR, config.REDIS_PASSWORD, config.REDIS_DB, log)
	var limiter *ratelimit.Limiter
	if rdb != nil {
		defer rdb.Close()
		limiter = ratelimit.NewLimiter(rdb, config.SUBMIT_RATE_LIMIT, time.Minute)
	}

	if config.STRIPE_SECRET_KEY == "" {
		log.Warn("STRIPE_SECRET_KEY not set, paid submissions will fail")
	}
	policy := pricing.Policy{
		MaxSubmissionsPerCall: config.SUBMISSION_CAP,
		FlatFee:               pricing.Money(config.SUBMISSION_FEE_CENTS),
		Currency:              config.SUBMISSION_FEE_CURRENCY,
		FeeSource:             config.SUBMISSION_FEE_SOURCE,
	}
	wf := workflow.New(workflow.Deps{
		Policy:      policy,
		Calls:       calls,
		Submissions: subs,
		Payments:    stripe.NewPaymentIntents(config.STRIPE_SECRET_KEY),
		Events:      publisher,
		Log:         log.With("component", "submission_workflow"),
	})

	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logger.HeaderRequestID},
		ExposeHeaders:    []string{"Content-Length", logger.HeaderRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		Profiles:    profiles,
		OpenCalls:   calls,
		Submissions: subs,
		Workflow:    wf,
		Curation: curation.Deps{
			Calls:       calls,
			Submissions: subs,
			Events:      publisher,
		},
		Events:        publisher,
		WebhookSecret: config.STRIPE_WEBHOOK_SECRET,
		SubmitLimiter: limiter,
	})

	log.Info("listening", "port", config.PORT, "env", config.APP_ENV)
	if err := r.Run(":" + config.PORT); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
