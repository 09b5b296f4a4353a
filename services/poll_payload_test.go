package services

import (
	"errors"
	"testing"

	"github.com/fenilmodi00/flight-deals-backend/fixtures"
	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePollPayload(t *testing.T) {
	body := fixtures.PollBody(true, 530, fixtures.MustRead(fixtures.SkyscannerRoundTrip))

	payload, err := ParsePollPayload(body, false)
	require.NoError(t, err)
	assert.True(t, payload.Finished)
	assert.Equal(t, 530, payload.Progress)
	assert.Contains(t, payload.ResultsHTML, `id="myModal0"`)

	pending, err := ParsePollPayload("N|12|0|EUR|1|0| <div>loading</div> ", false)
	require.NoError(t, err)
	assert.False(t, pending.Finished)
	assert.Equal(t, "<div>loading</div>", pending.ResultsHTML)
}

func TestParsePollPayloadProtocolErrors(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		requireFinished bool
		field           string
	}{
		{"too few parts", "Y|1|2|3|4|5", false, "parts"},
		{"bad flag", "X|1|0|0|0|0|<div></div>", false, "finished"},
		{"pending on always-finished provider", "N|1|0|0|0|0|<div></div>", true, "finished"},
		{"missing count", "Y| |0|0|0|0|<div></div>", false, "progress"},
		{"non numeric count", "Y|abc|0|0|0|0|<div></div>", false, "progress"},
		{"empty results", "Y|1|0|0|0|0|   |", false, "results"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePollPayload(tt.body, tt.requireFinished)

			var protocolErr *shared.ProtocolFormatError
			require.True(t, errors.As(err, &protocolErr), "got %v", err)
			assert.Equal(t, tt.field, protocolErr.Field)
			assert.Equal(t, tt.body, protocolErr.Raw)
		})
	}
}
