package profiles

import (
	"sort"
	"strings"

	"github.com/sells-group/leadgen-cli/internal/artifact"
	"github.com/sells-group/leadgen-cli/internal/model"
)

// Relevant reports whether the hit's title mentions the searched role or
// company.
func Relevant(h model.ProfileHit) bool {
	title := strings.ToLower(h.Title)
	return strings.Contains(title, strings.ToLower(h.Role)) ||
		strings.Contains(title, strings.ToLower(h.Company))
}

// Clean drops irrelevant hits and merges the rest by URL. The first hit for
// a URL supplies query, company and title; roles accumulate across hits.
func Clean(hits []model.ProfileHit) []model.Profile {
	type entry struct {
		profile model.Profile
		roles   map[string]bool
	}
	var order []string
	byURL := make(map[string]*entry)

	for _, h := range hits {
		if !Relevant(h) {
			continue
		}
		if e, ok := byURL[h.URL]; ok {
			e.roles[h.Role] = true
			continue
		}
		byURL[h.URL] = &entry{
			profile: model.Profile{Query: h.Query, Company: h.Company, URL: h.URL, Title: h.Title},
			roles:   map[string]bool{h.Role: true},
		}
		order = append(order, h.URL)
	}

	out := make([]model.Profile, 0, len(order))
	for _, url := range order {
		e := byURL[url]
		roles := make([]string, 0, len(e.roles))
		for r := range e.roles {
			roles = append(roles, r)
		}
		sort.Strings(roles)
		e.profile.Roles = strings.Join(roles, ", ")
		out = append(out, e.profile)
	}
	return out
}

// RunClean cleans the raw hits in in and writes profiles to out.
func RunClean(in, out string) (model.RunStats, error) {
	var stats model.RunStats
	hits, err := artifact.ReadJSON[model.ProfileHit](in)
	if err != nil {
		return stats, err
	}
	profiles := Clean(hits)
	stats.Total = len(hits)
	stats.Succeeded = len(profiles)
	stats.Skipped = len(hits) - len(profiles)
	return stats, artifact.WriteJSON(out, profiles)
}
