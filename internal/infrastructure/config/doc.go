// Package config handles loading and validating catalog service configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading an optional .env file into the environment
//   - Overriding with environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - The JWT signing secret and the admin credential have no default value;
//     Load fails until they are supplied
//   - Sensitive values should be set via environment variables
//   - The admin password is configured as an Argon2id hash, never as plaintext
//
// Usage:
//
//	if err := config.LoadDotEnv(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Service.Name)
package config
