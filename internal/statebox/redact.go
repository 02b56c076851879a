package statebox

import (
	"regexp"
	"time"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

	// ISO-8601-like timestamps as emitted by CI logs: date, optional time
	// with optional fractional seconds and zone.
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
)

// RedactEmails masks email-address-shaped substrings before result text is
// stored, so the document can live in a broadly readable repository.
func RedactEmails(text string) string {
	return emailPattern.ReplaceAllString(text, "[redacted-email]")
}

// timestampLayouts tried in order when parsing extracted substrings.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05-0700",
}

// ExtractTimestamps scans text for the first and last ISO-8601-like timestamp
// substrings. Steps report their own start/completion times inside their log
// output; those are better evidence than the wall clock of whichever process
// happens to record the status. Either return value may be nil.
func ExtractTimestamps(text string) (first, last *time.Time) {
	matches := timestampPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil, nil
	}
	first = parseTimestamp(matches[0])
	last = parseTimestamp(matches[len(matches)-1])
	return first, last
}

func parseTimestamp(raw string) *time.Time {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			u := ts.UTC()
			return &u
		}
	}
	return nil
}
