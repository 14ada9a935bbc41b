package aggregator

import (
	"github.com/taskdeck/core/pkg/models"
)

// mergeProjects folds per-provider project lists into one list. Projects are
// matched by (provider, path) and keep their first-seen order. The merge is
// conservative: one input's stale data cannot erase another's fresher signal.
func mergeProjects(lists ...[]models.Project) []models.Project {
	type key struct {
		provider string
		path     string
	}

	merged := make(map[key]*models.Project)
	var order []key

	for _, list := range lists {
		for _, p := range list {
			k := key{p.Provider, p.Path}
			current, ok := merged[k]
			if !ok {
				cp := p
				cp.Sessions = append([]models.Session(nil), p.Sessions...)
				merged[k] = &cp
				order = append(order, k)
				continue
			}
			mergeInto(current, p)
		}
	}

	out := make([]models.Project, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	return out
}

// mergeInto combines src into dst. Sessions union with the earlier occurrence
// of an id winning; startDate takes the minimum, mostRecentTodoDate the
// maximum, pathExists the logical OR, and stats the field-wise sum.
func mergeInto(dst *models.Project, src models.Project) {
	for _, s := range src.Sessions {
		if dst.HasSession(s.ID) {
			continue
		}
		dst.Sessions = append(dst.Sessions, s)
	}

	if src.PathExists {
		dst.PathExists = true
	}
	if dst.StartDate.IsZero() ||
		(!src.StartDate.IsZero() && src.StartDate.Before(dst.StartDate)) {
		dst.StartDate = src.StartDate
	}
	if src.MostRecentTodoDate.After(dst.MostRecentTodoDate) {
		dst.MostRecentTodoDate = src.MostRecentTodoDate
	}
	dst.Stats = dst.Stats.Add(src.Stats)
}
