package monitor

// fetchResult is the outcome of fetching one tracked id.
// Exactly one of Info/Err is set.
type fetchResult struct {
	Info *AppInfo
	Err  error
}

// detectChanges compares fetched metadata against the stored snapshot.
//
// It walks trackedIDs in configured order; that order is the order of
// the returned changes (fetches complete in arbitrary order). Ids whose
// fetch failed are skipped without touching their stored version, so
// the comparison baseline is unchanged and they are retried next cycle.
//
// The returned delta holds only the ids that changed this cycle and is
// what the controller merges into the store after delivery succeeds.
func detectChanges(trackedIDs []string, results map[string]fetchResult, snapshot map[string]string) ([]Change, map[string]string) {
	var changes []Change
	delta := make(map[string]string)

	for _, id := range trackedIDs {
		res, ok := results[id]
		if !ok || res.Err != nil || res.Info == nil {
			continue
		}
		info := *res.Info

		prev, known := snapshot[id]
		if known && prev == info.Version {
			// Unchanged; do not re-stage, the stored value is already right.
			continue
		}

		kind := FirstObservation
		if known {
			kind = NewRelease
		}
		changes = append(changes, Change{AppInfo: info, Kind: kind, Previous: prev})
		delta[id] = info.Version
	}

	return changes, delta
}
