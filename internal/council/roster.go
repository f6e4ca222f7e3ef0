package council

import (
	"time"

	"github.com/councilhq/council/internal/provider"
	"github.com/councilhq/council/pkg/models"
)

// BuildRoster turns key resolutions into the active model roster and the
// opening usage log. Providers resolved to "none" contribute nothing.
// Registration follows catalog order so the usage log is deterministic for a
// given resolution set. Returns ErrNoProvidersAvailable on an empty roster.
func BuildRoster(resolutions map[string]models.Resolution, now func() time.Time) (models.Roster, []models.UsageEntry, error) {
	if now == nil {
		now = time.Now
	}

	var roster models.Roster
	var entries []models.UsageEntry

	for _, name := range provider.Names() {
		res, ok := resolutions[name]
		if !ok || !res.Usable() {
			continue
		}
		for _, m := range provider.ModelsFor(name) {
			roster = append(roster, models.RegisteredModel{
				ModelID:   m.ID,
				Provider:  m.Provider,
				ModelName: m.ModelName,
				KeySource: res.Source,
				Key:       res.Key,
			})
			entries = append(entries, models.UsageEntry{
				ModelID:   m.ID,
				Provider:  m.Provider,
				KeySource: res.Source,
				Timestamp: now().UTC(),
			})
		}
	}

	if len(roster) == 0 {
		return nil, nil, ErrNoProvidersAvailable
	}
	return roster, entries, nil
}
