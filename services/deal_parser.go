package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/sirupsen/logrus"
)

const unknownPartner = "Unknown"

// euro sign as UTF-8 and as the mis-decoded Latin-1 sequence some pages serve
var pricePattern = regexp.MustCompile(`(?:€|â‚¬|\$|£)\s*(\d+)`)

// ParserProfile captures the per-family differences in the results markup
type ParserProfile struct {
	Source     string
	LinkPrefix string
	// PriceAttribute, when set, holds the price already in minor units
	PriceAttribute string
	LabelSplit     LabelSplit
}

// DealParser turns a results fragment into trips, flights, legs and deals
type DealParser struct {
	profile ParserProfile
}

// NewDealParser creates a parser for one provider family
func NewDealParser(profile ParserProfile) *DealParser {
	if profile.LabelSplit == nil {
		profile.LabelSplit = SplitLeadingPair
	}
	return &DealParser{profile: profile}
}

type direction struct {
	inbound bool
	date    string
	flights []models.Flight
	// connections[i] is the label read from the panel that produced flights[i]
	connections []string
}

type parseState struct {
	capturedAt time.Time
	out        *models.ParsedDeals
	seen       map[string]bool
}

func (s *parseState) firstSighting(kind, id string) bool {
	key := kind + ":" + id
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	return true
}

// Parse extracts every itinerary in resultsHTML. All entities share capturedAt.
// Any fatal problem discards the whole output.
func (p *DealParser) Parse(resultsHTML string, capturedAt time.Time) (*models.ParsedDeals, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "DealParser",
		"method":    "Parse",
		"source":    p.profile.Source,
	})

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsHTML))
	if err != nil {
		return nil, &shared.ParseFatalError{ModalID: "document", Reason: "could not parse results HTML: " + err.Error()}
	}

	state := &parseState{
		capturedAt: capturedAt,
		out: &models.ParsedDeals{
			Deals:   []models.Deal{},
			Flights: []models.Flight{},
			Legs:    []models.Leg{},
			Trips:   []models.Trip{},
		},
		seen: make(map[string]bool),
	}

	var parseErr error
	doc.Find(`div.modal[id^="myModal"]`).EachWithBreak(func(_ int, modal *goquery.Selection) bool {
		parseErr = p.parseModal(doc, modal, state)
		return parseErr == nil
	})
	if parseErr != nil {
		return nil, parseErr
	}

	logger.WithFields(logrus.Fields{
		"deals":   len(state.out.Deals),
		"flights": len(state.out.Flights),
		"legs":    len(state.out.Legs),
		"trips":   len(state.out.Trips),
	}).Debug("Parsed results fragment")

	return state.out, nil
}

func (p *DealParser) parseModal(doc *goquery.Document, modal *goquery.Selection, state *parseState) error {
	modalID, _ := modal.Attr("id")

	summary := findSummary(doc, modalID)
	price := p.extractPrice(summary)
	link, _ := summary.Find(`a[href^="` + p.profile.LinkPrefix + `"]`).First().Attr("href")

	outboundHeading := modal.Find(`p._heading:contains("Outbound")`).First()
	outboundText := strings.TrimSpace(outboundHeading.Text())
	outboundDate, ok := ParseHeadingDate(outboundText)
	if !ok {
		return &shared.ParseFatalError{ModalID: modalID, Reason: "could not parse outbound date", Text: outboundText}
	}

	outbound := direction{date: outboundDate}
	p.collectFlights(modalID, outboundHeading, &outbound, state.capturedAt)

	var inbound direction
	returnHeading := modal.Find(`p._heading:contains("Return")`).First()
	if returnHeading.Length() > 0 {
		returnText := strings.TrimSpace(returnHeading.Text())
		returnDate, ok := ParseHeadingDate(returnText)
		if !ok {
			return &shared.ParseFatalError{ModalID: modalID, Reason: "could not parse return date", Text: returnText}
		}
		inbound = direction{inbound: true, date: returnDate}
		p.collectFlights(modalID, returnHeading, &inbound, state.capturedAt)
	}

	if len(outbound.flights) == 0 {
		return &shared.ParseFatalError{ModalID: modalID, Reason: "no outbound flights found in modal"}
	}

	partner := strings.TrimSpace(
		modal.Find(`p._heading:contains("Book Your Ticket")`).First().Parent().
			Find("._similar > div > p").First().Text())
	if partner == "" {
		partner = unknownPartner
	}

	flightIDs := make([]string, 0, len(outbound.flights)+len(inbound.flights))
	for _, f := range append(append([]models.Flight(nil), outbound.flights...), inbound.flights...) {
		flightIDs = append(flightIDs, f.ID)
		if state.firstSighting("flight", f.ID) {
			state.out.Flights = append(state.out.Flights, f)
		}
	}

	tripID := BuildTripID(flightIDs)
	if state.firstSighting("trip", tripID) {
		state.out.Trips = append(state.out.Trips, models.Trip{ID: tripID, CreatedAt: state.capturedAt})
	}

	for _, dir := range []direction{outbound, inbound} {
		for i, f := range dir.flights {
			var connection *int
			if i < len(dir.flights)-1 {
				connection = ParseConnectionTime(dir.connections[i])
			}
			leg := models.Leg{
				ID:             BuildLegID(tripID, dir.inbound, f.ID),
				Trip:           tripID,
				Flight:         f.ID,
				Inbound:        dir.inbound,
				Order:          i,
				ConnectionTime: connection,
				CreatedAt:      state.capturedAt,
			}
			if state.firstSighting("leg", leg.ID) {
				state.out.Legs = append(state.out.Legs, leg)
			}
		}
	}

	first := outbound.flights[0]
	destination := outbound.flights[len(outbound.flights)-1].Destination
	if stops := strings.TrimSpace(summary.Find(".item").First().Find(".stops p").Last().Find("span").Last().Text()); stops != "" {
		destination = stops
	}

	deal := models.Deal{
		ID:            BuildDealID(tripID, p.profile.Source, partner),
		Trip:          tripID,
		Origin:        first.Origin,
		Destination:   destination,
		IsRound:       len(inbound.flights) > 0,
		DepartureDate: outbound.date,
		DepartureTime: first.DepartureTime,
		Source:        p.profile.Source,
		Provider:      partner,
		Price:         price,
		Link:          link,
		CreatedAt:     state.capturedAt,
		UpdatedAt:     state.capturedAt,
	}
	if deal.IsRound {
		returnDate := inbound.date
		returnTime := inbound.flights[0].DepartureTime
		deal.ReturnDate = &returnDate
		deal.ReturnTime = &returnTime
	}
	if state.firstSighting("deal", deal.ID) {
		state.out.Deals = append(state.out.Deals, deal)
	}

	return nil
}

// findSummary returns the list row whose click handler opens modalID
func findSummary(doc *goquery.Document, modalID string) *goquery.Selection {
	opener := regexp.MustCompile(regexp.QuoteMeta(modalID) + `\b`)
	return doc.Find(".list-item a[onclick]").FilterFunction(func(_ int, a *goquery.Selection) bool {
		onclick, _ := a.Attr("onclick")
		return opener.MatchString(onclick)
	}).First().Closest(".list-item")
}

func (p *DealParser) extractPrice(summary *goquery.Selection) int {
	if p.profile.PriceAttribute != "" {
		holder := summary.Filter("[" + p.profile.PriceAttribute + "]")
		if holder.Length() == 0 {
			holder = summary.Find("[" + p.profile.PriceAttribute + "]").First()
		}
		if raw, ok := holder.Attr(p.profile.PriceAttribute); ok {
			if minor, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
				return minor
			}
		}
	}

	match := pricePattern.FindStringSubmatch(strings.TrimSpace(summary.Find(".prices").Text()))
	if match == nil {
		return 0
	}
	major, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return major * 100
}

// collectFlights reads the panels that belong to one direction heading.
// Panels live in the heading's next ._panel sibling; older markup nests
// them directly in the heading's parent.
func (p *DealParser) collectFlights(modalID string, heading *goquery.Selection, dir *direction, capturedAt time.Time) {
	container := heading.NextFiltered("._panel").First()
	if container.Length() == 0 {
		container = heading.Parent()
	}

	container.Find("._panel_body").Each(func(i int, panel *goquery.Selection) {
		flight, ok := p.parsePanel(panel, dir.date, capturedAt)
		if !ok {
			logrus.WithFields(logrus.Fields{
				"component": "DealParser",
				"modal_id":  modalID,
				"inbound":   dir.inbound,
				"panel":     i,
			}).Debug("Skipping flight panel with missing fields")
			return
		}
		dir.flights = append(dir.flights, flight)
		dir.connections = append(dir.connections, panel.Find(".connect_airport").Text())
	})
}

func (p *DealParser) parsePanel(panel *goquery.Selection, date string, capturedAt time.Time) (models.Flight, bool) {
	airline, flightNumber, ok := p.profile.LabelSplit(strings.TrimSpace(panel.Find("._head small").Text()))
	if !ok {
		return models.Flight{}, false
	}

	item := panel.Find("._item")
	times := texts(item.Find(".c3 p"))
	airports := texts(item.Find(".c4 p"))
	if len(times) < 2 || len(airports) < 2 {
		return models.Flight{}, false
	}

	origin := firstToken(airports[0])
	destination := firstToken(airports[1])
	if times[0] == "" || times[1] == "" || origin == "" || destination == "" {
		return models.Flight{}, false
	}

	return models.Flight{
		ID:            BuildFlightID(flightNumber, origin, date, times[0]),
		FlightNumber:  flightNumber,
		Airline:       airline,
		Origin:        origin,
		Destination:   destination,
		DepartureDate: date,
		DepartureTime: times[0],
		ArrivalDate:   date,
		ArrivalTime:   times[1],
		Duration:      ParseDuration(strings.TrimSpace(item.Find(".c1 p").Text())),
		CreatedAt:     capturedAt,
	}, true
}

func texts(sel *goquery.Selection) []string {
	return sel.Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
}

func firstToken(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
