package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fenilmodi00/flight-deals-backend/shared"
)

const minPollParts = 7

// PollPayload is one decoded poll response
type PollPayload struct {
	Finished    bool
	Progress    int
	ResultsHTML string
}

// ParsePollPayload decodes a pipe-delimited poll body:
//
//	Y|530|...|...|...|...|<results html>|...
//
// When requireFinished is set the provider must answer "Y" on the first poll.
func ParsePollPayload(body string, requireFinished bool) (PollPayload, error) {
	parts := strings.Split(body, "|")
	if len(parts) < minPollParts {
		return PollPayload{}, protocolError("parts", fmt.Sprintf("expected at least %d pipe-delimited parts, got %d", minPollParts, len(parts)), body)
	}

	flag := strings.TrimSpace(parts[0])
	if flag != "Y" && flag != "N" {
		return PollPayload{}, protocolError("finished", fmt.Sprintf("expected first item to be 'N' or 'Y', got '%s'", flag), body)
	}
	if requireFinished && flag != "Y" {
		return PollPayload{}, protocolError("finished", "expected a finished poll response, got 'N'", body)
	}

	countText := strings.TrimSpace(parts[1])
	if countText == "" {
		return PollPayload{}, protocolError("progress", "second item (count) is missing or empty", body)
	}
	progress, err := strconv.Atoi(countText)
	if err != nil {
		return PollPayload{}, protocolError("progress", fmt.Sprintf("second item (count) is not a valid number: '%s'", countText), body)
	}

	results := strings.TrimSpace(parts[6])
	if results == "" {
		return PollPayload{}, protocolError("results", "seventh item (results html) is missing or empty", body)
	}

	return PollPayload{
		Finished:    flag == "Y",
		Progress:    progress,
		ResultsHTML: results,
	}, nil
}

func protocolError(field, reason, raw string) *shared.ProtocolFormatError {
	return &shared.ProtocolFormatError{Field: field, Reason: reason, Raw: raw}
}
