package services

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/fenilmodi00/flight-deals-backend/models"
)

const (
	ProviderSkyscanner = "skyscanner"
	ProviderKiwi       = "kiwi"
)

type queryParam struct {
	key, value string
}

// Provider describes one provider family served by the portal host
type Provider struct {
	Name       string
	SearchPath string
	PollPath   string
	// SessionFields are read from the bootstrap page and echoed on each poll
	SessionFields []string
	// AlwaysFinished providers answer the first poll with final results
	AlwaysFinished bool
	Profile        ParserProfile

	buildQuery func(models.SearchInput) []queryParam
}

// Skyscanner returns the skyscanner family definition
func Skyscanner() Provider {
	return Provider{
		Name:       ProviderSkyscanner,
		SearchPath: "/portal/sky",
		PollPath:   "/portal/sky/poll",
		SessionFields: []string{
			"_token", "session", "suuid", "deeplink", "s",
			"adults", "children", "infants", "currency",
		},
		Profile: ParserProfile{
			Source:     ProviderSkyscanner,
			LinkPrefix: "https://agw.skyscnr.com",
			LabelSplit: SplitLeadingPair,
		},
		buildQuery: func(in models.SearchInput) []queryParam {
			params := []queryParam{
				{"originplace", in.Origin},
				{"destinationplace", in.Destination},
				{"outbounddate", in.DepartureDate},
			}
			if in.IsRoundTrip() {
				params = append(params, queryParam{"inbounddate", *in.ReturnDate})
			}
			return append(params,
				queryParam{"cabinclass", "Economy"},
				queryParam{"adults", "1"},
				queryParam{"children", "0"},
				queryParam{"infants", "0"},
				queryParam{"currency", "EUR"},
			)
		},
	}
}

// Kiwi returns the kiwi family definition
func Kiwi() Provider {
	return Provider{
		Name:       ProviderKiwi,
		SearchPath: "/portal/kiwi",
		PollPath:   "/portal/kiwi/poll",
		SessionFields: []string{
			"_token", "originplace", "destinationplace", "outbounddate", "inbounddate",
			"cabinclass", "adults", "children", "infants", "currency",
			"type", "bags-cabin", "bags-checked",
		},
		AlwaysFinished: true,
		Profile: ParserProfile{
			Source:         ProviderKiwi,
			LinkPrefix:     "https://www.kiwi.com/deep",
			PriceAttribute: "data-price",
			LabelSplit:     SplitTrailingDesignator,
		},
		buildQuery: func(in models.SearchInput) []queryParam {
			tripType := "oneway"
			if in.IsRoundTrip() {
				tripType = "return"
			}
			params := []queryParam{
				{"currency", "EUR"},
				{"type", tripType},
				{"cabinclass", "M"},
				{"originplace", in.Origin},
				{"destinationplace", in.Destination},
				{"outbounddate", toDayMonthYear(in.DepartureDate)},
			}
			if in.IsRoundTrip() {
				params = append(params, queryParam{"inbounddate", toDayMonthYear(*in.ReturnDate)})
			}
			return append(params,
				queryParam{"adults", "1"},
				queryParam{"children", "0"},
				queryParam{"infants", "0"},
				queryParam{"bags-cabin", "0"},
				queryParam{"bags-checked", "0"},
			)
		},
	}
}

var providers = map[string]func() Provider{
	ProviderSkyscanner: Skyscanner,
	ProviderKiwi:       Kiwi,
}

// LookupProvider finds a provider family by name
func LookupProvider(name string) (Provider, bool) {
	build, ok := providers[strings.ToLower(name)]
	if !ok {
		return Provider{}, false
	}
	return build(), true
}

// ProviderNames lists the supported families in sorted order
func ProviderNames() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SearchURL builds the bootstrap page URL. Parameters keep the order the portal's own form uses.
func (p Provider) SearchURL(baseURL string, in models.SearchInput) string {
	pairs := make([]string, 0, 12)
	for _, param := range p.buildQuery(in) {
		pairs = append(pairs, url.QueryEscape(param.key)+"="+url.QueryEscape(param.value))
	}
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), p.SearchPath, strings.Join(pairs, "&"))
}

// PollURL is the endpoint the results page posts its session to
func (p Provider) PollURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + p.PollPath
}

// toDayMonthYear turns 2026-02-01 into 01/02/2026
func toDayMonthYear(date string) string {
	parts := strings.Split(date, "-")
	if len(parts) != 3 {
		return date
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}
