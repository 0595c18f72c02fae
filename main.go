package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"payment-service/config"
	"payment-service/controllers"
	"payment-service/database"
	"payment-service/logger"
	"payment-service/models"
	"payment-service/rabbitmq"
	"payment-service/repository"
	"payment-service/routes"
	"payment-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[PaymentService] Failed to load config: ", err)
	}

	logger.Initialize(cfg.AppEnv)
	defer logger.Log.Sync()
	zl := logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.PostgresDSN(), zl,
		&models.Order{}, &models.OrderItem{}, &models.PaymentRequest{})
	if err != nil {
		zl.Fatal("Failed to connect to DB", zap.Error(err))
	}
	defer database.Close(db)

	orderRepo := repository.NewGormOrderRepository(db)
	requestRepo := repository.NewGormPaymentRequestRepository(db)

	channel := rabbitmq.NewChannel(cfg.RabbitMQURL, cfg.PaymentRequestsTTL, zl)
	brokerUp := true
	if err := channel.Connect(ctx, cfg.BrokerConnectAttempts, cfg.BrokerConnectDelay); err != nil {
		// Degraded mode: synchronous payments keep working through the
		// coordinator; async retry is unavailable until restart.
		zl.Error("RabbitMQ unavailable, running without async payment processing", zap.Error(err))
		brokerUp = false
	}
	defer channel.Close()

	publisher := rabbitmq.NewPublisher(channel, orderRepo, requestRepo, zl)
	gateway := services.NewHTTPPaymentGateway(cfg.GatewayURL, cfg.GatewayTimeout, zl)

	var notifier services.NotificationService
	if cfg.SMTPHost != "" {
		notifier = services.NewSMTPNotificationService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, zl)
	} else {
		notifier = services.NewLogNotificationService(zl)
	}

	paymentService := services.NewPaymentService(orderRepo, requestRepo, publisher, gateway, zl)

	consumer := services.NewPaymentRequestConsumer(
		channel, requestRepo, orderRepo, gateway, publisher, notifier, cfg.RetryBaseDelay, zl)
	orderCreatedConsumer := services.NewOrderCreatedConsumer(channel, zl)
	sweeper := services.NewRetrySweeper(requestRepo, publisher, cfg.SweepInterval, cfg.RetryCooldown, zl)

	if brokerUp {
		go func() {
			if err := consumer.Start(ctx); err != nil {
				zl.Error("Payment request consumer stopped", zap.Error(err))
			}
		}()
		go func() {
			if err := orderCreatedConsumer.Start(ctx); err != nil {
				zl.Error("Order created consumer stopped", zap.Error(err))
			}
		}()
		go sweeper.Start(ctx)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())

	pc := &controllers.PaymentController{
		Service:  paymentService,
		Requests: requestRepo,
		Logger:   zl,
	}
	routes.RegisterPaymentRoutes(r, pc)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		zl.Info("Payment service running", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("HTTP server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("HTTP server shutdown failed", zap.Error(err))
	}
	// Let any scheduled republish timers finish or observe cancellation.
	consumer.Wait()
}
