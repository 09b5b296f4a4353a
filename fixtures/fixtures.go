// Package fixtures embeds captured provider pages used by tests and the fake provider server.
package fixtures

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed skyscanner/*.html kiwi/*.html
var files embed.FS

const (
	SkyscannerInitial       = "skyscanner/initial.html"
	SkyscannerRoundTrip     = "skyscanner/round-trip.html"
	SkyscannerOneWay        = "skyscanner/one-way.html"
	SkyscannerSectionLayout = "skyscanner/section-layout.html"
	KiwiInitial             = "kiwi/initial.html"
	KiwiRoundTrip           = "kiwi/round-trip.html"
	KiwiOneWay              = "kiwi/one-way.html"
)

// Read returns the content of an embedded fixture
func Read(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read fixture %s: %w", name, err)
	}
	return string(data), nil
}

// MustRead is Read for fixtures known to exist
func MustRead(name string) string {
	content, err := Read(name)
	if err != nil {
		panic(err)
	}
	return content
}

// PollBody wraps a results fragment in the pipe-delimited poll format
func PollBody(finished bool, progress int, resultsHTML string) string {
	flag := "N"
	if finished {
		flag = "Y"
	}
	fragment := strings.ReplaceAll(strings.TrimSpace(resultsHTML), "|", "&#124;")
	return fmt.Sprintf("%s|%d|0|EUR|1|0|%s|", flag, progress, fragment)
}
