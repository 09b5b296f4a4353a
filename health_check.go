package main

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/config"
	"github.com/fenilmodi00/flight-deals-backend/database"
	"github.com/fenilmodi00/flight-deals-backend/fakeserver"
	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/services"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/spf13/cobra"
)

var healthLive *bool

func init() {
	healthLive = healthCheckCmd.Flags().Bool("live", false, "Also search the configured provider host.")
	rootCmd.AddCommand(healthCheckCmd)
}

var healthCheckCmd = &cobra.Command{
	Use:   "healthcheck [--live]",
	Short: "Runs searches against an in-process fake provider and pings the database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthCheck(cmd.Context(), config.LoadConfig(), *healthLive)
	},
}

type healthCheck struct {
	name string
	run  func(ctx context.Context) (string, error)
}

func runHealthCheck(ctx context.Context, cfg *config.Config, live bool) error {
	fmt.Printf("🏥 Flight Deals Health Check - %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println(strings.Repeat("=", 50))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start fake provider: %w", err)
	}
	fake := fakeserver.NewApp(fakeserver.Options{PendingPolls: 2})
	go fake.Listener(listener)
	defer fake.Shutdown()

	fakeConfig := cfg.ProviderConfig()
	fakeConfig.BaseURL = "http://" + listener.Addr().String()
	fakeConfig.PollInterval = 10 * time.Millisecond

	factory := shared.NewHTTPClientFactory(fakeConfig.HTTPRequestTimeout)
	defer factory.CleanupAllClients()
	fakeSearch := services.NewSearchService(fakeConfig, factory, nil)

	departure := time.Now().AddDate(0, 1, 0).Format(models.DateLayout)
	returnDate := time.Now().AddDate(0, 1, 3).Format(models.DateLayout)
	input := models.SearchInput{Origin: "BER", Destination: "MAD", DepartureDate: departure, ReturnDate: &returnDate}

	checks := []healthCheck{
		{"✈️  Skyscanner (fake)", searchCheck(fakeSearch, services.ProviderSkyscanner, input)},
		{"🥝 Kiwi (fake)", searchCheck(fakeSearch, services.ProviderKiwi, input)},
	}
	if live {
		liveSearch := services.NewSearchService(cfg.ProviderConfig(), factory, nil)
		checks = append(checks, healthCheck{"📡 Skyscanner (live)", searchCheck(liveSearch, services.ProviderSkyscanner, input)})
	}
	if cfg.DatabaseURL != "" {
		checks = append(checks, healthCheck{"🗄️  Database", func(ctx context.Context) (string, error) {
			if err := database.Connect(cfg.DatabaseURL); err != nil {
				return "", err
			}
			defer database.Close()
			if err := database.HealthCheck(ctx); err != nil {
				return "", err
			}
			return "reachable", nil
		}})
	}

	passed := 0
	for _, check := range checks {
		fmt.Printf("%s: ", check.name)
		detail, err := check.run(ctx)
		if err != nil {
			fmt.Printf("❌ FAILED (%v)\n", err)
			continue
		}
		fmt.Printf("✅ OK (%s)\n", detail)
		passed++
	}

	fmt.Println(strings.Repeat("-", 50))
	percent := float64(passed) / float64(len(checks)) * 100
	switch {
	case passed == len(checks):
		fmt.Printf("🎉 SYSTEM HEALTHY: %d/%d checks passed (%.0f%%)\n", passed, len(checks), percent)
		return nil
	case passed >= len(checks)/2:
		fmt.Printf("⚠️  SYSTEM DEGRADED: %d/%d checks passed (%.0f%%)\n", passed, len(checks), percent)
	default:
		fmt.Printf("❌ SYSTEM UNHEALTHY: %d/%d checks passed (%.0f%%)\n", passed, len(checks), percent)
	}
	return fmt.Errorf("%d of %d health checks failed", len(checks)-passed, len(checks))
}

func searchCheck(svc *services.SearchService, provider string, input models.SearchInput) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		result, err := svc.Search(ctx, provider, input)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d deals, %d poll retries", result.Metadata.NumberOfDeals, result.Metadata.PollRetries), nil
	}
}
