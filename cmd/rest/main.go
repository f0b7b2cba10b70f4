package main

import (
	"context"
	"log"

	"ai-sqlpilot-be/internal/bootstrap"
	"ai-sqlpilot-be/internal/config"
	"ai-sqlpilot-be/internal/server"
	"ai-sqlpilot-be/internal/tracer"
	"ai-sqlpilot-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Databases
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	targetDB, err := database.NewTargetDB(cfg.Database.TargetDSN)
	if err != nil {
		log.Panicf("Unable to open target DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, targetDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
