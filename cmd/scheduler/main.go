package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"FinGenius/internal/di"
	"FinGenius/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("scheduler env=%s refresh=%s automations=%s training=%s summary=%s",
		cfg.Environment,
		cfg.Scheduler.AccountRefresh,
		cfg.Scheduler.DailyAutomations,
		cfg.Scheduler.ModelTraining,
		cfg.Scheduler.DailySummary)

	app, err := di.InitializeScheduler(cfg)
	if err != nil {
		log.Fatalf("scheduler initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("scheduler error: %v", err)
		os.Exit(1)
	}
}
