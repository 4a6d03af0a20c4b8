package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"
	stripeclient "github.com/stripe/stripe-go/v76/client"

	"github.com/saram098/navi-backend-2/cmd/mainconfig"
	"github.com/saram098/navi-backend-2/internal/api/router"
	"github.com/saram098/navi-backend-2/internal/appointments"
	"github.com/saram098/navi-backend-2/internal/chatbot"
	"github.com/saram098/navi-backend-2/internal/clinic"
	appconfig "github.com/saram098/navi-backend-2/internal/config"
	"github.com/saram098/navi-backend-2/internal/insurance"
	"github.com/saram098/navi-backend-2/internal/messaging"
	"github.com/saram098/navi-backend-2/internal/observability/metrics"
	"github.com/saram098/navi-backend-2/internal/payments"
	"github.com/saram098/navi-backend-2/internal/scheduling"
	"github.com/saram098/navi-backend-2/internal/users"
	"github.com/saram098/navi-backend-2/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting navi clinic API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	// Repositories and domain services.
	userRepo := users.NewRepository(pool)
	schedRepo := scheduling.NewRepository(pool).WithSearchWindow(cfg.AvailabilitySearchDays)
	apptRepo := appointments.NewRepository(pool)
	apptService := appointments.NewService(apptRepo, schedRepo, logger)
	clinicStore := clinic.NewStore(pool)
	insuranceVerifier := insurance.NewVerifier(logger)
	turnStore := messaging.NewTurnStore(pool)

	// Chatbot brain.
	openaiClient := openai.NewClient(cfg.OpenAIAPIKey)
	classifier := chatbot.NewOpenAIClassifier(openaiClient, cfg.OpenAIModel, logger)
	responder := chatbot.NewOpenAIResponder(openaiClient, cfg.OpenAIModel, logger)
	sessions := chatbot.NewSessionStore(redisClient, cfg.SessionTTL)
	chatMetrics := metrics.NewChatbotMetrics(prometheus.DefaultRegisterer)

	// Payments.
	stripeAPI := &stripeclient.API{}
	stripeAPI.Init(cfg.StripeSecretKey, nil)
	paymentService := payments.NewService(stripeAPI, apptService, cfg.PaymentCurrency, logger)
	stripeWebhook := payments.NewStripeWebhookHandler(cfg.StripeWebhookSecret, apptService, logger)

	agent := chatbot.NewAgent(chatbot.AgentConfig{
		Sessions:       sessions,
		Classifier:     classifier,
		Responder:      responder,
		Users:          userRepo,
		Physicians:     schedRepo,
		Availability:   schedRepo,
		Appointments:   apptService,
		Insurance:      insuranceVerifier,
		Clinic:         clinicStore,
		Payments:       paymentService,
		Metrics:        chatMetrics,
		Logger:         logger,
		ClinicName:     cfg.ClinicName,
		NextDatesLimit: cfg.NextDatesLimit,
	})

	// Queue: in-memory for a single process, SQS when scaled out.
	sender := messaging.NewWhatsAppSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, logger)
	var dispatcher *chatbot.Dispatcher
	if cfg.UseMemoryQueue {
		dispatcher = chatbot.NewDispatcher(agent, chatbot.NewMemoryQueue(256), sender, logger,
			chatbot.WithWorkerCount(cfg.WorkerCount),
			chatbot.WithTurnRecorder(turnStore),
		)
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		dispatcher = chatbot.NewDispatcher(agent,
			chatbot.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ChatbotQueueURL), sender, logger,
			chatbot.WithWorkerCount(cfg.WorkerCount),
			chatbot.WithTurnRecorder(turnStore),
		)
	}
	dispatcher.Start(ctx)

	webhookURL := ""
	if cfg.PublicBaseURL != "" {
		webhookURL = cfg.PublicBaseURL + "/webhooks/twilio"
	}
	twilioWebhook := messaging.NewWebhookHandler(dispatcher, cfg.TwilioAuthToken, webhookURL, logger)

	r := router.New(&router.Config{
		Logger:         logger,
		TwilioWebhook:  twilioWebhook,
		StripeWebhook:  stripeWebhook,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	// Stop the queue consumers after the HTTP server drains.
	cancel()
	dispatcher.Wait()

	logger.Info("server stopped")
}
