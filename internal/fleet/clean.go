package fleet

// CleanOptions configures Clean.
type CleanOptions struct {
	Backfill BackfillOptions
}

// CleanStats reports what Clean changed.
type CleanStats struct {
	Input      int
	Duplicates int
	Backfill   BackfillStats
	Isolated   int
	Main       int
}

// CleanResult holds the two disjoint outputs of Clean.
type CleanResult struct {
	Main     *DeviceSet
	Isolated *DeviceSet
	Stats    CleanStats
}

// Clean deduplicates set, repairs date_mod, and splits isolated rows from the
// main set. The union of both outputs is the deduplicated input.
func Clean(set *DeviceSet, opts CleanOptions) (CleanResult, error) {
	deduped, duplicates := Dedupe(set)
	repaired, backfill, err := Backfill(deduped, opts.Backfill)
	if err != nil {
		return CleanResult{}, err
	}
	main, isolated := Partition(repaired)
	return CleanResult{
		Main:     main,
		Isolated: isolated,
		Stats: CleanStats{
			Input:      set.Len(),
			Duplicates: duplicates,
			Backfill:   backfill,
			Isolated:   isolated.Len(),
			Main:       main.Len(),
		},
	}, nil
}

// Dedupe drops rows identical across every column to an earlier row. The first
// occurrence is kept and order is preserved.
func Dedupe(set *DeviceSet) (*DeviceSet, int) {
	out := set.empty()
	seen := make(map[string]struct{}, len(set.Records))
	for _, rec := range set.Records {
		key := rec.rowKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Records = append(out.Records, rec.clone())
	}
	return out, set.Len() - out.Len()
}

// Partition splits set into main and isolated rows. Isolated rows have
// users_id == 0 and states_id == 2; every other row is main.
func Partition(set *DeviceSet) (main, isolated *DeviceSet) {
	main = set.empty()
	isolated = set.empty()
	for _, rec := range set.Records {
		if rec.Isolated() {
			isolated.Records = append(isolated.Records, rec.clone())
			continue
		}
		main.Records = append(main.Records, rec.clone())
	}
	return main, isolated
}
