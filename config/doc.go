// Package config provides configuration loading and validation for mongolink.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (MONGOLINK_ prefix)
//  4. CLI flags
//
// # Application Settings
//
// The app section is passed to the connection manager unchanged, apart from
// boolean flags given as strings. It carries the connection settings in any
// supported shape and the test-mode flags:
//
//	app:
//	  testing: true
//	  temp_db: true
//	  mongodb_settings:
//	    - alias: main
//	      host: localhost
//	      db: app
//
// Well-known application keys are also read from unprefixed environment
// variables (TESTING, TEMP_DB, MONGODB_HOST, MONGODB_DB, ...), matching how a
// host application reads them.
//
// Connections saved with `mongolink configure` live in a separate YAML file
// named by connections_file; they are appended to app.mongodb_settings.
//
// # Usage
//
//	cfg, err := config.Load([]string{"mongolink.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Env must be development or production
//   - Log level must be debug, info, warn, or error
//   - Manager ready attempts must be at least 1
package config
