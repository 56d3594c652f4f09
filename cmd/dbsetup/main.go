package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"chain-gateway/internal/config"
	"chain-gateway/internal/models"
	"chain-gateway/internal/services"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	mongoURI      string
	mongoDatabase string
	opTimeout     time.Duration

	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	faint   = color.New(color.Faint).SprintFunc()
)

var rootCmd = &cobra.Command{
	Use:   "dbsetup",
	Short: "Manage the MongoDB API key store of the chain gateway",
	Long: `dbsetup prepares the MongoDB collection that backs API key
authentication of the chain gateway.

Environment Variables:
  MONGODB_URI                MongoDB connection string
  MONGODB_DATABASE           Database name
  MONGODB_APIKEY_COLLECTION  API keys collection name

Examples:
  dbsetup init                   # Create indexes
  dbsetup seed                   # Insert test keys into an empty collection
  dbsetup create-key ops-team    # Issue a new key
  dbsetup deactivate-key <key>   # Revoke a key
  dbsetup health                 # Check connectivity, pool and indexes
  dbsetup all                    # health + init + seed`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.LoadConfig()
		if mongoURI != "" {
			cfg.MongoDB.URI = mongoURI
		}
		if mongoDatabase != "" {
			cfg.MongoDB.Database = mongoDatabase
		}
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the API key collection and its indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuthService(cmd.Context(), initializeDatabase)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed an empty collection with test API keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuthService(cmd.Context(), seedTestData)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run a database health check",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthCheck(cmd.Context())
	},
}

var createKeyInactive bool

var createKeyCmd = &cobra.Command{
	Use:   "create-key <name>",
	Short: "Create a new API key and print it once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuthService(cmd.Context(), func(ctx context.Context, auth *services.AuthService) error {
			apiKey, err := auth.CreateAPIKey(ctx, args[0], !createKeyInactive)
			if err != nil {
				return err
			}
			fmt.Printf("%s Created API key %q\n", success("✓"), apiKey.Name)
			fmt.Printf("  %s\n", apiKey.Key)
			fmt.Println(faint("  Store it now; it cannot be shown again."))
			return nil
		})
	},
}

var deactivateKeyCmd = &cobra.Command{
	Use:   "deactivate-key <key>",
	Short: "Deactivate an existing API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAuthService(cmd.Context(), func(ctx context.Context, auth *services.AuthService) error {
			if err := auth.SetActive(ctx, args[0], false); err != nil {
				return fmt.Errorf("deactivate API key: %w", err)
			}
			fmt.Printf("%s API key deactivated\n", success("✓"))
			return nil
		})
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run full setup (health + init + seed)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runHealthCheck(cmd.Context()); err != nil {
			return err
		}
		return withAuthService(cmd.Context(), func(ctx context.Context, auth *services.AuthService) error {
			if err := initializeDatabase(ctx, auth); err != nil {
				return err
			}
			return seedTestData(ctx, auth)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mongoURI, "uri", "", "MongoDB connection string (overrides MONGODB_URI)")
	rootCmd.PersistentFlags().StringVar(&mongoDatabase, "database", "", "database name (overrides MONGODB_DATABASE)")
	rootCmd.PersistentFlags().DurationVar(&opTimeout, "timeout", 30*time.Second, "timeout for each command")

	createKeyCmd.Flags().BoolVar(&createKeyInactive, "inactive", false, "create the key disabled")

	rootCmd.AddCommand(initCmd, seedCmd, healthCmd, createKeyCmd, deactivateKeyCmd, allCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failure("✗"), err)
		os.Exit(1)
	}
	fmt.Println(success("Database setup completed successfully!"))
}

// withAuthService connects, runs fn under the command timeout and disconnects
func withAuthService(ctx context.Context, fn func(ctx context.Context, auth *services.AuthService) error) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	auth, err := services.NewAuthService(ctx, &cfg.MongoDB)
	if err != nil {
		return err
	}
	defer auth.Close()

	return fn(ctx, auth)
}

// runHealthCheck performs a comprehensive health check
func runHealthCheck(ctx context.Context) error {
	fmt.Println("Running database health check...")

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	healthChecker, err := services.NewDatabaseHealthChecker(ctx, &cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("failed to create health checker: %w", err)
	}
	defer healthChecker.Close()

	healthChecks := healthChecker.GetDetailedHealth(ctx)

	fmt.Println("Health Check Results:")
	var unhealthy []string
	for service, check := range healthChecks {
		mark := success("✓")
		if check.Status != services.HealthStatusHealthy {
			mark = failure("✗")
		}
		fmt.Printf("  %s %s: %s (%v)\n", mark, service, check.Status, check.ResponseTime)
		if check.Message != "" {
			fmt.Printf("    %s\n", faint(check.Message))
		}
		if check.Status == services.HealthStatusUnhealthy {
			unhealthy = append(unhealthy, service)
		}
	}

	if len(unhealthy) > 0 {
		return fmt.Errorf("health check failed for %v", unhealthy)
	}

	fmt.Println("All health checks passed!")
	return nil
}

// initializeDatabase creates the key indexes
func initializeDatabase(ctx context.Context, auth *services.AuthService) error {
	fmt.Println("Setting up database schema...")

	if err := auth.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Printf("%s Indexes on %s.%s are in place\n", success("✓"), cfg.MongoDB.Database, cfg.MongoDB.APIKeyCollection)
	return nil
}

// seedTestData creates sample API keys for testing
func seedTestData(ctx context.Context, auth *services.AuthService) error {
	fmt.Println("Creating test API keys...")

	count, err := auth.CountAPIKeys(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		fmt.Printf("Found %d existing API keys, skipping seed data creation\n", count)
		return nil
	}

	testAPIKeys, err := testKeys(time.Now().UTC(), 5)
	if err != nil {
		return err
	}
	if err := auth.InsertAPIKeys(ctx, testAPIKeys...); err != nil {
		return fmt.Errorf("failed to insert test API keys: %w", err)
	}

	fmt.Printf("%s Created %d test API keys\n", success("✓"), len(testAPIKeys))
	for _, apiKey := range testAPIKeys {
		status := success("active")
		if !apiKey.Active {
			status = failure("inactive")
		}
		fmt.Printf("  - %s (%s) [%s]\n", apiKey.Key, apiKey.Name, status)
	}
	return nil
}

// testKeys returns the fixed test keys plus generated random ones
func testKeys(now time.Time, generated int) ([]*models.APIKey, error) {
	keys := []*models.APIKey{
		{Key: "test-api-key-1", Name: "Test API Key 1", Active: true, CreatedAt: now},
		{Key: "test-api-key-2", Name: "Test API Key 2", Active: true, CreatedAt: now},
		{Key: "inactive-test-key", Name: "Inactive Test Key", Active: false, CreatedAt: now},
	}

	for i := 0; i < generated; i++ {
		randomKey, err := services.GenerateAPIKey()
		if err != nil {
			return nil, err
		}
		keys = append(keys, &models.APIKey{
			Key:       randomKey,
			Name:      fmt.Sprintf("Generated Test Key %d", i+1),
			Active:    true,
			CreatedAt: now,
		})
	}
	return keys, nil
}
