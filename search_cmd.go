package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/fenilmodi00/flight-deals-backend/config"
	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/services"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/spf13/cobra"
)

var (
	searchOrigin      *string
	searchDestination *string
	searchDeparture   *string
	searchReturn      *string
	searchBaseURL     *string
)

func init() {
	searchOrigin = searchCmd.Flags().String("origin", "", "Origin IATA code.")
	searchDestination = searchCmd.Flags().String("destination", "", "Destination IATA code.")
	searchDeparture = searchCmd.Flags().String("depart", "", "Departure date, YYYY-MM-DD.")
	searchReturn = searchCmd.Flags().String("return", "", "Return date, YYYY-MM-DD. Omit for one-way.")
	searchBaseURL = searchCmd.Flags().String("base-url", "", "Overrides PROVIDER_BASE_URL.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <provider> --origin BER --destination MAD --depart 2026-02-01 [--return 2026-02-04]",
	Short: "Runs one provider search and prints the result as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if *searchBaseURL != "" {
			cfg.ProviderBaseURL = *searchBaseURL
		}
		unified := cfg.UnifiedConfiguration()
		config.ConfigureLogging(unified.Logging)

		input := models.SearchInput{
			Origin:        strings.ToUpper(*searchOrigin),
			Destination:   strings.ToUpper(*searchDestination),
			DepartureDate: *searchDeparture,
		}
		if *searchReturn != "" {
			input.ReturnDate = searchReturn
		}

		factory := shared.NewHTTPClientFactory(unified.Provider.HTTPRequestTimeout)
		defer factory.CleanupAllClients()

		result, err := services.NewSearchService(unified.Provider, factory, nil).Search(cmd.Context(), args[0], input)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	},
}
