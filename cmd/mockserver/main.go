package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dhruv2494/mocktail-engine/internal/config"
	"github.com/dhruv2494/mocktail-engine/internal/logger"
	"github.com/dhruv2494/mocktail-engine/internal/mockapi"
	"github.com/dhruv2494/mocktail-engine/internal/model"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Msg("Starting mock quiz API")

	server := mockapi.NewServer(cfg, log)
	seedFixtures(server)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: server.Router(),
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// seedFixtures loads a small sample test so the CLI works out of the box.
func seedFixtures(server *mockapi.Server) {
	questions := []model.Question{
		{ID: "q1", Prompt: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Mercury"}, Marks: 2, OrderNum: 1},
		{ID: "q2", Prompt: "What is the capital of Australia?", Options: []string{"Sydney", "Melbourne", "Canberra", "Perth"}, Marks: 2, OrderNum: 2},
		{ID: "q3", Prompt: "How many sides does a hexagon have?", Options: []string{"Five", "Six", "Seven", "Eight"}, Marks: 1, OrderNum: 3},
		{ID: "q4", Prompt: "Which gas do plants absorb from the atmosphere?", Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide", "Hydrogen"}, Marks: 1, OrderNum: 4},
		{ID: "q5", Prompt: "Who wrote 'Pride and Prejudice'?", Options: []string{"Emily Bronte", "Jane Austen", "Mary Shelley", "Virginia Woolf"}, Marks: 2, OrderNum: 5},
	}
	server.SeedTest(mockapi.Test{
		ID:              "sample-test",
		Title:           "Sample General Knowledge Test",
		DurationSeconds: 600,
		Language:        "en",
		Questions:       questions,
		CorrectOptions:  map[string]int{"q1": 1, "q2": 2, "q3": 1, "q4": 2, "q5": 1},
	})
	server.SeedTest(mockapi.Test{
		ID:              "demo-test",
		Title:           "Demo Test",
		DurationSeconds: 120,
		IsDemo:          true,
		Language:        "en",
		Questions:       questions[:2],
		CorrectOptions:  map[string]int{"q1": 1, "q2": 2},
	})
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
