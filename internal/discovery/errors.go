package discovery

import (
	"errors"
	"fmt"
)

// ErrEmptyKeyword is returned for a blank search keyword
var ErrEmptyKeyword = errors.New("discovery: keyword is required")

// Stage names the enrichment step that failed.
type Stage string

const (
	StageMetrics Stage = "metrics"
	StageScrape  Stage = "scrape"
	StageWhois   Stage = "whois"
)

// EnrichmentError is a per-channel enrichment failure. It is logged and
// counted, never returned from Discover.
type EnrichmentError struct {
	ChannelID string
	Stage     Stage
	Err       error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("%s enrichment failed for channel %s: %v", e.Stage, e.ChannelID, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }
