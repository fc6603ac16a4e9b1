package config_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sagarc03/mongolink/config"
)

func ExampleLoad() {
	// Load with defaults only (no config file)
	cfg, err := config.Load(nil, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Port: %d, Alias: %s\n", cfg.Server.Port, cfg.Server.Alias)
	// Output: Port: 5709, Alias: default-mongodb-connection
}

func ExampleWithContext() {
	cfg, _ := config.Load(nil, nil)

	// Store config in context
	ctx := config.WithContext(context.Background(), cfg)

	// Retrieve later (e.g., in a subcommand)
	retrieved, err := config.FromContext(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Retrieved port: %d\n", retrieved.Server.Port)
	// Output: Retrieved port: 5709
}
