package main

import (
	"os"

	"feed_aggregator/internal/logger"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		logger.Log.Fatalf("Application error: %v", err)
	}
}
