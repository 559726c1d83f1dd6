package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"uploadguard/internal/config/di"
	"uploadguard/internal/handlers"
	appError "uploadguard/internal/shared/error"
	logger "uploadguard/internal/shared/log"
	"uploadguard/internal/shared/middleware"
)

func main() {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	container, err := di.InitContainer(ctx, di.Options{})
	if err != nil {
		fmt.Printf("Failed to initialize container: %v\n", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: appError.ErrorHandler(),
		BodyLimit:    8 * 1024 * 1024,
	})

	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": "uploadguard"})
	})

	handlers.RegisterRoutes(app, container.ValidationService)

	port := container.Config.Port
	logger.Infof(ctx, "Starting uploadguard server on port %s", port)

	serverErr := make(chan error, 2)
	go func() {
		if err := app.Listen(":" + port); err != nil {
			serverErr <- err
		}
	}()

	consumerDone := make(chan struct{})
	if container.Consumer != nil {
		logger.Infof(ctx, "Consuming notifications from topic %s", container.Config.KafkaNotificationTopic)
		go func() {
			defer close(consumerDone)
			if err := container.Consumer.Run(ctx); err != nil {
				serverErr <- fmt.Errorf("notification consumer stopped: %w", err)
			}
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErr:
		logger.Error(ctx, err, "Service stopped unexpectedly")
		exitCode = 1
	case sig := <-c:
		logger.Infof(ctx, "Received signal %s", sig)
	}
	logger.Info(ctx, "Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, err, "Server forced to shutdown")
	} else {
		logger.Info(ctx, "Server shutdown complete")
	}

	if container.Consumer != nil {
		// The in-flight batch finishes and commits before the reader closes.
		select {
		case <-consumerDone:
		case <-shutdownCtx.Done():
			logger.Warn(ctx, "Notification consumer did not stop before the shutdown deadline")
		}
	}

	if err := container.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, err, "Error during container shutdown")
	}

	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
