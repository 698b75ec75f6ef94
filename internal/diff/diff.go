// internal/diff/diff.go
package diff

import "devtool/internal/model"

// Compute partitions current against previous by repository ID.
//
// A record present in both collections is changed when its updated_at or
// pushed_at differs; every other field is ignored, so a rename or visibility
// flip with identical timestamps is reported as unchanged. Each partition keeps
// the order of the collection it was drawn from.
func Compute(previous, current []model.Repository) model.DiffResult {
	prevByID := make(map[int64]model.Repository, len(previous))
	for _, r := range previous {
		prevByID[r.ID] = r
	}
	curIDs := make(map[int64]struct{}, len(current))
	for _, r := range current {
		curIDs[r.ID] = struct{}{}
	}

	var result model.DiffResult
	for _, r := range current {
		prev, ok := prevByID[r.ID]
		switch {
		case !ok:
			result.Added = append(result.Added, r)
		case Changed(prev, r):
			result.Changed = append(result.Changed, r)
		default:
			result.Unchanged = append(result.Unchanged, r)
		}
	}
	for _, r := range previous {
		if _, ok := curIDs[r.ID]; !ok {
			result.Removed = append(result.Removed, r)
		}
	}
	return result
}

// Changed reports whether either activity timestamp moved between snapshots.
func Changed(prev, cur model.Repository) bool {
	return !sameString(prev.UpdatedAt, cur.UpdatedAt) || !sameString(prev.PushedAt, cur.PushedAt)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
