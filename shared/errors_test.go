package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  ErrorCategory
		retryable bool
	}{
		{"transport", &TransportError{URL: "http://x/portal/sky", Attempt: 2, StatusCode: 503}, ErrorCategoryNetwork, true},
		{"protocol", &ProtocolFormatError{Field: "_token", Reason: "missing"}, ErrorCategoryProtocol, false},
		{"retry exhausted", &RetryBudgetExhaustedError{MaxRetries: 20}, ErrorCategoryRetryExhausted, true},
		{"parse", fmt.Errorf("parse: %w", &ParseFatalError{ModalID: "myModal1", Reason: "no outbound flights"}), ErrorCategoryParse, false},
		{"deadline inside transport", &TransportError{URL: "http://x", Cause: context.DeadlineExceeded}, ErrorCategoryTimeout, true},
		{"canceled while waiting", fmt.Errorf("waiting between polls: %w", context.Canceled), ErrorCategoryCanceled, true},
		{"canceled inside transport", &TransportError{URL: "http://x", Attempt: 1, Cause: context.Canceled}, ErrorCategoryCanceled, true},
		{"plain", errors.New("boom"), ErrorCategoryProcessing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := ClassifyError(tt.err, "SearchService", "Search")
			require.NotNil(t, se)
			assert.Equal(t, tt.category, se.Category)
			assert.Equal(t, tt.retryable, se.Retryable)
			assert.True(t, errors.Is(se, tt.err) || errors.Unwrap(se) == tt.err)
		})
	}
}

func TestClassifyErrorKeepsServiceError(t *testing.T) {
	original := NewServiceError(ErrorCategoryValidation, "INVALID_SEARCH_INPUT", "bad origin", "SearchService", "Search", false, nil)
	wrapped := fmt.Errorf("search: %w", original)

	assert.Same(t, original, ClassifyError(wrapped, "Other", "Op"))
	assert.Nil(t, ClassifyError(nil, "Other", "Op"))
}

func TestClassifyErrorAttachesFailureDetails(t *testing.T) {
	se := ClassifyError(&TransportError{URL: "http://x/portal/sky/poll", Attempt: 3, StatusCode: 502}, "SearchService", "Search")
	assert.Equal(t, map[string]interface{}{"url": "http://x/portal/sky/poll", "attempt": 3, "status_code": 502}, se.Details)
	assert.True(t, se.IsRetryable())

	se = ClassifyError(&ProtocolFormatError{Field: "_token", Reason: "missing"}, "SearchService", "Search")
	assert.Equal(t, map[string]interface{}{"field": "_token"}, se.Details)
	assert.False(t, se.IsRetryable())

	se = ClassifyError(errors.New("boom"), "SearchService", "Search")
	assert.Nil(t, se.Details)
}

func TestSearchFailureKinds(t *testing.T) {
	var failures = []SearchFailure{
		&TransportError{},
		&ProtocolFormatError{},
		&RetryBudgetExhaustedError{},
		&ParseFatalError{},
	}
	seen := map[ErrorCategory]bool{}
	for _, f := range failures {
		seen[f.Category()] = true
	}
	assert.Len(t, seen, 4)
}

func TestParseFatalErrorTruncatesText(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	err := &ParseFatalError{ModalID: "myModal0", Reason: "unparsable outbound date", Text: string(long)}
	assert.Contains(t, err.Error(), "...")
	assert.Less(t, len(err.Error()), 150)
}
