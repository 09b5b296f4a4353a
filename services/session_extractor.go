package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/shared"
)

// NonceField is added to every session so the provider does not serve a cached poll
const NonceField = "noc"

var bootstrapObjectPattern = regexp.MustCompile(`data:\s*\{[\s\S]*?'_token'[\s\S]*?\}`)

// SessionFields are the values a results page posts back on every poll
type SessionFields struct {
	names  []string
	values map[string]string
}

// Get returns the value of a field and whether it was extracted
func (s SessionFields) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names lists the fields in extraction order, nonce last
func (s SessionFields) Names() []string {
	return append([]string(nil), s.names...)
}

// Form returns the fields as url.Values. Its Encode sorts by key; use Encode
// on SessionFields for the body actually posted.
func (s SessionFields) Form() url.Values {
	form := url.Values{}
	for _, name := range s.names {
		form.Set(name, s.values[name])
	}
	return form
}

// Encode renders the poll body with the fields in extraction order, nonce last
func (s SessionFields) Encode() string {
	var b strings.Builder
	for i, name := range s.names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s.values[name]))
	}
	return b.String()
}

// ExtractSessionFields pulls the named fields out of the bootstrap object
// embedded in a search page. Values keep any backslash escapes verbatim.
func ExtractSessionFields(html string, names []string, now time.Time) (SessionFields, error) {
	object := bootstrapObjectPattern.FindString(html)
	if object == "" {
		return SessionFields{}, &shared.ProtocolFormatError{
			Field:  "bootstrap object",
			Reason: "could not find data object in HTML",
			Raw:    html,
		}
	}

	fields := SessionFields{values: make(map[string]string, len(names)+1)}
	for _, name := range names {
		value, err := extractField(object, name)
		if err != nil {
			return SessionFields{}, err
		}
		fields.names = append(fields.names, name)
		fields.values[name] = value
	}

	fields.names = append(fields.names, NonceField)
	fields.values[NonceField] = strconv.FormatInt(now.UnixMilli(), 10)

	return fields, nil
}

func extractField(object, name string) (string, error) {
	pattern, err := regexp.Compile(`'` + regexp.QuoteMeta(name) + `'\s*:\s*'((?:[^'\\]|\\.)*)'`)
	if err != nil {
		return "", fmt.Errorf("compile pattern for %q: %w", name, err)
	}

	match := pattern.FindStringSubmatch(object)
	if match == nil {
		return "", &shared.ProtocolFormatError{
			Field:  name,
			Reason: fmt.Sprintf("could not extract '%s' field", name),
			Raw:    object,
		}
	}
	return match[1], nil
}
