package models

import (
	"fmt"
	"regexp"
	"time"
)

var iataCodePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// SearchInput describes one route query sent to a provider
type SearchInput struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DepartureDate string  `json:"departure_date"`
	ReturnDate    *string `json:"return_date,omitempty"`
}

// IsRoundTrip reports whether a return date was requested
func (in SearchInput) IsRoundTrip() bool {
	return in.ReturnDate != nil && *in.ReturnDate != ""
}

// Validate checks airport codes and dates before any request goes out
func (in SearchInput) Validate() error {
	if !IsIATACode(in.Origin) {
		return fmt.Errorf("origin %q is not a 3-letter IATA code", in.Origin)
	}
	if !IsIATACode(in.Destination) {
		return fmt.Errorf("destination %q is not a 3-letter IATA code", in.Destination)
	}
	if in.Origin == in.Destination {
		return fmt.Errorf("origin and destination must differ")
	}

	departure, err := time.Parse(DateLayout, in.DepartureDate)
	if err != nil {
		return fmt.Errorf("departure_date %q must be YYYY-MM-DD", in.DepartureDate)
	}

	if in.IsRoundTrip() {
		ret, err := time.Parse(DateLayout, *in.ReturnDate)
		if err != nil {
			return fmt.Errorf("return_date %q must be YYYY-MM-DD", *in.ReturnDate)
		}
		if ret.Before(departure) {
			return fmt.Errorf("return_date %s is before departure_date %s", *in.ReturnDate, in.DepartureDate)
		}
	}

	return nil
}

// IsIATACode reports whether s looks like a three-letter airport code
func IsIATACode(s string) bool {
	return iataCodePattern.MatchString(s)
}

// ParsedDeals is the normalized output of one results page
type ParsedDeals struct {
	Deals   []Deal   `json:"deals"`
	Flights []Flight `json:"flights"`
	Legs    []Leg    `json:"legs"`
	Trips   []Trip   `json:"trips"`
}

// SearchMetadata summarizes one search run
type SearchMetadata struct {
	RunID           string   `json:"run_id"`
	Provider        string   `json:"provider"`
	NumberOfDeals   int      `json:"number_of_deals"`
	NumberOfFlights int      `json:"number_of_flights"`
	NumberOfLegs    int      `json:"number_of_legs"`
	NumberOfTrips   int      `json:"number_of_trips"`
	PollRetries     int      `json:"poll_retries"`
	Errors          []string `json:"errors"`
	TimeSpentMs     int64    `json:"time_spent_ms"`
}

// SearchResult is the envelope returned by a successful search
type SearchResult struct {
	Data     ParsedDeals    `json:"data"`
	Metadata SearchMetadata `json:"metadata"`
}
