package fleet

// FilterStats reports how many rows FilterByUsers kept.
type FilterStats struct {
	Input   int
	Kept    int
	Dropped int
}

// FilterByUsers keeps the rows whose trimmed users_id is exactly a known
// utilisateur_id. Relative order is preserved; dropped rows are discarded.
func FilterByUsers(set *DeviceSet, users *Directory) (*DeviceSet, FilterStats) {
	out := set.empty()
	for _, rec := range set.Records {
		if users.Allows(rec.UsersID()) {
			out.Records = append(out.Records, rec.clone())
		}
	}
	return out, FilterStats{Input: set.Len(), Kept: out.Len(), Dropped: set.Len() - out.Len()}
}
