package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/models"
)

var (
	headingDatePattern = regexp.MustCompile(`(\d{1,2})\s+(\w+)\s+(\d{4})`)
	hoursMinutePattern = regexp.MustCompile(`(\d+)h\s*(\d+)?`)
	leadingPairPattern = regexp.MustCompile(`(\w+)\s+(\w+)`)
	whitespaceRun      = regexp.MustCompile(`\s+`)
	digitsOnly         = regexp.MustCompile(`^\d+$`)
)

var monthNumbers = map[string]string{
	"Jan": "01", "Feb": "02", "Mar": "03", "Apr": "04", "May": "05", "Jun": "06",
	"Jul": "07", "Aug": "08", "Sep": "09", "Oct": "10", "Nov": "11", "Dec": "12",
}

// ParseHeadingDate turns "Sun, 1 Feb 2026" into "2026-02-01".
func ParseHeadingDate(text string) (string, bool) {
	match := headingDatePattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}

	day, monthName, year := match[1], match[2], match[3]
	if len(monthName) < 3 {
		return "", false
	}
	month, ok := monthNumbers[monthName[:3]]
	if !ok {
		return "", false
	}
	if len(day) == 1 {
		day = "0" + day
	}

	date := year + "-" + month + "-" + day
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return "", false
	}
	return date, true
}

// ParseDuration reads "<H>h <M>" as minutes; anything else is 0
func ParseDuration(text string) int {
	minutes, ok := parseHoursMinutes(text)
	if !ok {
		return 0
	}
	return minutes
}

// ParseConnectionTime uses the duration pattern but reports no match as nil
func ParseConnectionTime(text string) *int {
	minutes, ok := parseHoursMinutes(text)
	if !ok {
		return nil
	}
	return &minutes
}

func parseHoursMinutes(text string) (int, bool) {
	match := hoursMinutePattern.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	minutes := 0
	if match[2] != "" {
		minutes, _ = strconv.Atoi(match[2])
	}
	return hours*60 + minutes, true
}

// LabelSplit turns a panel's flight label into airline and flight number
type LabelSplit func(label string) (airline, flightNumber string, ok bool)

// SplitLeadingPair takes the first two word tokens: "KLM KL1770" gives
// airline "KLM" and number "KLM KL1770". Multi-word airlines come out
// wrong ("Air Europa UX1098" gives "Air" / "Air Europa") and callers rely on that.
func SplitLeadingPair(label string) (string, string, bool) {
	match := leadingPairPattern.FindStringSubmatch(label)
	if match == nil {
		return "", "", false
	}
	return match[1], match[1] + " " + match[2], true
}

// SplitTrailingDesignator reads the designator from the end of the label:
// "Wizz Air Malta W4 3110" gives airline "Wizz Air Malta" and number "W43110".
func SplitTrailingDesignator(label string) (string, string, bool) {
	tokens := strings.Fields(label)
	switch {
	case len(tokens) >= 3 && digitsOnly.MatchString(tokens[len(tokens)-1]):
		n := len(tokens)
		return strings.Join(tokens[:n-2], " "), tokens[n-2] + tokens[n-1], true
	case len(tokens) >= 2:
		n := len(tokens)
		return strings.Join(tokens[:n-1], " "), tokens[n-1], true
	default:
		return "", "", false
	}
}

// BuildFlightID is {number}_{origin}_{date}_{HH-MM}
func BuildFlightID(flightNumber, origin, departureDate, departureTime string) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		whitespaceRun.ReplaceAllString(flightNumber, "_"),
		origin,
		departureDate,
		strings.Replace(departureTime, ":", "-", 1),
	)
}

// BuildTripID hashes the sorted flight ids so discovery order does not matter
func BuildTripID(flightIDs []string) string {
	sorted := append([]string(nil), flightIDs...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "|")))
	return hex.EncodeToString(sum[:])
}

func BuildLegID(tripID string, inbound bool, flightID string) string {
	direction := "outbound"
	if inbound {
		direction = "inbound"
	}
	return tripID + "_" + direction + "_" + flightID
}

func BuildDealID(tripID, source, partner string) string {
	return tripID + "_" + source + "_" + whitespaceRun.ReplaceAllString(partner, "_")
}
