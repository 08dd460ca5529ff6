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
	runtime, err := bootstrap.NewGatewayRuntime(ctx, *configPath)
	if err != nil {
		log.Fatalf("bootstrap gateway runtime: %v", err)
	}
	if err := runtime.Run(ctx); err != nil {
		log.Fatalf("run gateway: %v", err)
	}
}
