package main

import (
	"context"
	"log"

	"siesa-sync/config"
	"siesa-sync/internal/repository"
	"siesa-sync/pkg/database"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := repository.InitSchema(context.Background(), db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("schema up to date")
}
