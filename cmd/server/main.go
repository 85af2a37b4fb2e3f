package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ianb/trivia-maker/internal/config"
	"github.com/ianb/trivia-maker/internal/database"
	"github.com/ianb/trivia-maker/internal/handlers"
	"github.com/ianb/trivia-maker/internal/repository"
	"github.com/ianb/trivia-maker/internal/router"
	"github.com/ianb/trivia-maker/internal/services"
	"github.com/ianb/trivia-maker/internal/websocket"
)

func main() {
	log.Println("🚀 Starting Trivia Maker...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Initialize Repositories ────
	store := repository.NewRedisStore(redisClients.Store)
	cardRepo := repository.NewCardRepo(store)
	feedbackRepo := repository.NewFeedbackRepo(store)
	settingsRepo := repository.NewSettingsRepo(store)

	// ──── Initialize Services ────
	openRouterClient := services.NewOpenRouterClient(cfg.OpenRouterModel, time.Duration(cfg.GenerateTimeoutSecs)*time.Second)
	connectService := services.NewConnectService(settingsRepo, openRouterClient)
	categoryService := services.NewCategoryService(cardRepo, feedbackRepo)
	eventPublisher := websocket.NewPublisher(redisClients.PubSub)
	reviewService := services.NewReviewService(cardRepo, feedbackRepo, settingsRepo, openRouterClient, eventPublisher)
	log.Printf("✓ OpenRouter client initialized (model: %s)", cfg.OpenRouterModel)

	// ──── Initialize Handlers ────
	cardHandler := handlers.NewCardHandler(cardRepo, feedbackRepo, categoryService)
	generateHandler := handlers.NewGenerateHandler(reviewService, feedbackRepo)
	connectHandler := handlers.NewConnectHandler(connectService)

	// ──── Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub)
	log.Println("✓ WebSocket hub started")

	// ──── Start HTTP Server ────
	r := router.New(
		cardHandler,
		generateHandler,
		connectHandler,
		wsHub,
		cfg.FrontendURL,
		cfg.AuthRateLimitPerMin,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Duration(cfg.GenerateTimeoutSecs) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		wsHub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ Trivia Maker ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
