package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/terraregistry/auth-service/internal/app/bootstrap"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap runtime: %v", err)
	}
	if err := runtime.RunAPI(ctx); err != nil {
		log.Fatalf("run api: %v", err)
	}
}
