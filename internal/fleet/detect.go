package fleet

import (
	"math"
	"slices"
	"strconv"
	"time"

	"phonefleet/internal/dates"
	"phonefleet/internal/tabular"
)

const (
	// DaysPerYear converts day gaps into years, leap years included.
	DaysPerYear = 365.25
	// DefaultThresholdYears is the early-replacement cut-off.
	DefaultThresholdYears = 2.0
	// DefaultUnknownLabel stands in for unknown user or device names.
	DefaultUnknownLabel = "Inconnu"
)

// ReplacementColumns is the header of the replacement events file.
var ReplacementColumns = []string{
	"users_id",
	"nom_utilisateur",
	"nom_tele_precedent",
	"date_precedente",
	"nom_tele_actuel",
	"date_actuelle",
	"intervalle_jours",
	"intervalle_annees",
}

// SummaryColumns is the header of the per-user summary file.
var SummaryColumns = []string{"users_id", "nom_utilisateur", "nb_remplacements_anticipes"}

// ReplacementEvent is a pair of consecutive assignments to one user closer
// than the threshold.
type ReplacementEvent struct {
	UserID         UserID
	UserName       string
	PreviousDevice string
	PreviousDate   string
	CurrentDevice  string
	CurrentDate    string
	GapDays        int
	GapYears       float64
}

// UserReplacementSummary counts the events of one user.
type UserReplacementSummary struct {
	UserID   UserID
	UserName string
	Count    int
}

// DetectOptions configures DetectReplacements.
type DetectOptions struct {
	ThresholdYears float64
	UnknownLabel   string
}

func (o DetectOptions) withDefaults() DetectOptions {
	if o.ThresholdYears <= 0 {
		o.ThresholdYears = DefaultThresholdYears
	}
	if o.UnknownLabel == "" {
		o.UnknownLabel = DefaultUnknownLabel
	}
	return o
}

// DetectStats reports the detection pass.
type DetectStats struct {
	Input       int
	Active      int
	Unparseable int
	Users       int
	Events      int
	Flagged     int
}

// DetectResult holds events in user then time order and the summary sorted by
// count descending.
type DetectResult struct {
	Events  []ReplacementEvent
	Summary []UserReplacementSummary
	Stats   DetectStats
}

type assignment struct {
	record DeviceRecord
	at     time.Time
	dated  bool
}

// DetectReplacements flags every pair of temporally adjacent active
// assignments to the same user whose gap, in whole days divided by 365.25, is
// strictly below the threshold. Rows with an unparseable date_mod sort last in
// their group and every pair involving them is skipped.
func DetectReplacements(set *DeviceSet, users *Directory, opts DetectOptions) DetectResult {
	opts = opts.withDefaults()
	result := DetectResult{Stats: DetectStats{Input: set.Len()}}

	groups := make(map[UserID][]assignment)
	var order []UserID
	for _, rec := range set.Records {
		if !rec.ActiveAssignment() {
			continue
		}
		result.Stats.Active++
		at, ok := dates.ParseTimestamp(rec.DateMod())
		if !ok {
			result.Stats.Unparseable++
		}
		key := CanonicalUserID(rec.Value(ColumnUsersID))
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], assignment{record: rec, at: at, dated: ok})
	}
	result.Stats.Users = len(order)
	slices.SortFunc(order, compareUserIDs)

	counts := make(map[UserID]*UserReplacementSummary)
	for _, user := range order {
		group := groups[user]
		if len(group) < 2 {
			continue
		}
		slices.SortStableFunc(group, compareAssignments)

		name := opts.label(users.Name(user))
		for i := 1; i < len(group); i++ {
			prev, curr := group[i-1], group[i]
			if !prev.dated || !curr.dated {
				continue
			}
			days := int(curr.at.Sub(prev.at) / (24 * time.Hour))
			years := float64(days) / DaysPerYear
			if years >= opts.ThresholdYears {
				continue
			}
			result.Events = append(result.Events, ReplacementEvent{
				UserID:         user,
				UserName:       name,
				PreviousDevice: opts.deviceName(prev.record),
				PreviousDate:   dates.FormatDay(prev.at),
				CurrentDevice:  opts.deviceName(curr.record),
				CurrentDate:    dates.FormatDay(curr.at),
				GapDays:        days,
				GapYears:       roundHundredths(years),
			})
			summary, ok := counts[user]
			if !ok {
				summary = &UserReplacementSummary{UserID: user, UserName: name}
				counts[user] = summary
			}
			summary.Count++
		}
	}

	result.Summary = make([]UserReplacementSummary, 0, len(counts))
	for _, summary := range counts {
		result.Summary = append(result.Summary, *summary)
	}
	slices.SortFunc(result.Summary, func(a, b UserReplacementSummary) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return compareUserIDs(a.UserID, b.UserID)
	})
	result.Stats.Events = len(result.Events)
	result.Stats.Flagged = len(result.Summary)
	return result
}

func compareAssignments(a, b assignment) int {
	switch {
	case a.dated && b.dated:
		return a.at.Compare(b.at)
	case a.dated:
		return -1
	case b.dated:
		return 1
	}
	return 0
}

func (o DetectOptions) label(name string, ok bool) string {
	if !ok {
		return o.UnknownLabel
	}
	return name
}

func (o DetectOptions) deviceName(rec DeviceRecord) string {
	if name := rec.Name(); name != "" {
		return name
	}
	return o.UnknownLabel
}

func roundHundredths(v float64) float64 {
	return math.Round(v*100) / 100
}

// EventsTable renders events for persistence.
func EventsTable(events []ReplacementEvent) *tabular.Table {
	table := &tabular.Table{Header: append([]string(nil), ReplacementColumns...)}
	table.Rows = make([][]string, 0, len(events))
	for _, ev := range events {
		table.Rows = append(table.Rows, []string{
			string(ev.UserID),
			ev.UserName,
			ev.PreviousDevice,
			ev.PreviousDate,
			ev.CurrentDevice,
			ev.CurrentDate,
			strconv.Itoa(ev.GapDays),
			strconv.FormatFloat(ev.GapYears, 'f', 2, 64),
		})
	}
	return table
}

// SummaryTable renders the per-user summary for persistence.
func SummaryTable(summary []UserReplacementSummary) *tabular.Table {
	table := &tabular.Table{Header: append([]string(nil), SummaryColumns...)}
	table.Rows = make([][]string, 0, len(summary))
	for _, s := range summary {
		table.Rows = append(table.Rows, []string{string(s.UserID), s.UserName, strconv.Itoa(s.Count)})
	}
	return table
}
