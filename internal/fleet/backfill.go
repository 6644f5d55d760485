package fleet

import (
	"fmt"
	"strings"

	"phonefleet/internal/dates"
	"phonefleet/internal/tabular"
)

// DefaultBackfillSources are the free-text columns searched for a date, in
// priority order.
var DefaultBackfillSources = []string{ColumnDateCreation, ColumnComment, ColumnContact}

// MidnightSuffix completes an extracted day into a date_mod timestamp.
const MidnightSuffix = " 00:00:00"

// SourcePhoneModels names the lookup step in statistics.
const SourcePhoneModels = "phone_models"

// BackfillOptions configures Backfill.
type BackfillOptions struct {
	// Sources overrides DefaultBackfillSources when non-empty.
	Sources []string
	// PhoneModels is the last-resort lookup. Nil means the table is
	// unavailable and the step is skipped.
	PhoneModels *PhoneModelIndex
}

func (o BackfillOptions) sources() []string {
	if len(o.Sources) == 0 {
		return DefaultBackfillSources
	}
	return o.Sources
}

// SourceFill counts the rows one backfill step repaired.
type SourceFill struct {
	Source string
	Filled int
}

// BackfillStats summarises a backfill pass.
type BackfillStats struct {
	Missing            int
	Steps              []SourceFill
	PhoneModelsSkipped bool
	Remaining          int
}

// Filled returns the number of rows repaired across every step.
func (s BackfillStats) Filled() int {
	total := 0
	for _, step := range s.Steps {
		total += step.Filled
	}
	return total
}

// Backfill returns a copy of set in which empty date_mod values are filled from
// the configured text sources and then from the phone-model lookup. Rows that
// already have a date_mod are never modified, so the pass is idempotent.
func Backfill(set *DeviceSet, opts BackfillOptions) (*DeviceSet, BackfillStats, error) {
	sources := opts.sources()
	var missing []string
	for _, src := range sources {
		if !set.HasColumn(src) {
			missing = append(missing, src)
		}
	}
	if len(missing) > 0 {
		return nil, BackfillStats{}, fmt.Errorf("backfill sources: %w: %s", tabular.ErrMissingColumns, strings.Join(missing, ", "))
	}

	out := set.Clone()
	pending := missingRows(out)
	stats := BackfillStats{Missing: len(pending)}

	for _, src := range sources {
		filled := 0
		remaining := pending[:0]
		for _, i := range pending {
			day, ok := dates.ExtractString(out.Records[i].Value(src))
			if !ok {
				remaining = append(remaining, i)
				continue
			}
			out.Records[i].SetValue(ColumnDateMod, day+MidnightSuffix)
			filled++
		}
		pending = remaining
		stats.Steps = append(stats.Steps, SourceFill{Source: src, Filled: filled})
	}

	if opts.PhoneModels == nil {
		stats.PhoneModelsSkipped = true
	} else {
		filled := 0
		remaining := pending[:0]
		for _, i := range pending {
			date, ok := opts.PhoneModels.Lookup(out.Records[i].Value(ColumnPhoneModelID))
			if !ok || date == "" {
				remaining = append(remaining, i)
				continue
			}
			out.Records[i].SetValue(ColumnDateMod, date)
			filled++
		}
		pending = remaining
		stats.Steps = append(stats.Steps, SourceFill{Source: SourcePhoneModels, Filled: filled})
	}

	stats.Remaining = len(pending)
	return out, stats, nil
}

func missingRows(set *DeviceSet) []int {
	var idx []int
	for i, rec := range set.Records {
		if rec.MissingDate() {
			idx = append(idx, i)
		}
	}
	return idx
}
