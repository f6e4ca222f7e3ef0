package models

import "time"

// UsageEntry records that one model was registered for a request and which
// key source authenticated it. Entries are ordered by registration time.
type UsageEntry struct {
	ModelID   string    `json:"model_id"`
	Provider  string    `json:"provider"`
	KeySource KeySource `json:"key_source"`
	Timestamp time.Time `json:"timestamp"`
}

// UsageSummary aggregates a usage log by key source.
type UsageSummary map[KeySource]int

// Total returns the number of entries the summary accounts for.
func (s UsageSummary) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}
