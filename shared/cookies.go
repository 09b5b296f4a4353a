package shared

import (
	"net/http"
	"strings"
)

// cookieJar is an insertion-ordered name=value set
type cookieJar struct {
	names  []string
	values map[string]string
}

func newCookieJar() *cookieJar {
	return &cookieJar{values: make(map[string]string)}
}

func (j *cookieJar) set(name, value string) {
	if _, exists := j.values[name]; !exists {
		j.names = append(j.names, name)
	}
	j.values[name] = value
}

func (j *cookieJar) addPairs(header string) {
	for _, part := range strings.Split(header, ";") {
		name, value, ok := splitCookiePair(part)
		if ok {
			j.set(name, value)
		}
	}
}

func (j *cookieJar) String() string {
	pairs := make([]string, 0, len(j.names))
	for _, name := range j.names {
		pairs = append(pairs, name+"="+j.values[name])
	}
	return strings.Join(pairs, "; ")
}

func splitCookiePair(raw string) (string, string, bool) {
	name, value, found := strings.Cut(strings.TrimSpace(raw), "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(value), true
}

// ExtractSetCookies reduces every Set-Cookie header to its name=value token,
// dropping attributes, and serializes them as a Cookie header value.
func ExtractSetCookies(header http.Header) string {
	jar := newCookieJar()
	for _, line := range header.Values("Set-Cookie") {
		first, _, _ := strings.Cut(line, ";")
		if name, value, ok := splitCookiePair(first); ok {
			jar.set(name, value)
		}
	}
	return jar.String()
}

// MergeCookies overlays incoming pairs onto existing ones. A name keeps the
// position of its first appearance and takes the newest value.
func MergeCookies(existing, incoming string) string {
	jar := newCookieJar()
	jar.addPairs(existing)
	jar.addPairs(incoming)
	return jar.String()
}
