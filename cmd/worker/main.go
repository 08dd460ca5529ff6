package main

import (
	"context"
	"flag"
	"log"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/app/bootstrap"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the yaml config file")
	flag.Parse()

	ctx := context.Background()
	runtime, err := bootstrap.NewWorkerRuntime(ctx, *configPath)
	if err != nil {
		log.Fatalf("bootstrap worker runtime: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run worker: %v", err)
	}
}
