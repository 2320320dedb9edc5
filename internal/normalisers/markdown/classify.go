package markdown

import (
	"strings"

	"github.com/custodia-labs/reqsync/internal/core/domain"
)

// Classification explains how a category was chosen.
type Classification struct {
	Category      domain.Category
	Reason        string
	PlatformScore int
	AgentScore    int
}

// Classify picks a category from the filename, explicit markers,
// override phrases and finally keyword scores. Ties go to the agent
// category.
func (r *Rules) Classify(text, filename string) Classification {
	c := r.classify
	lower := strings.ToLower(text)

	res := Classification{
		PlatformScore: countPresent(lower, c.platform),
		AgentScore:    countPresent(lower, c.agent),
	}

	if filename != "" {
		name := strings.ToLower(filename)
		for _, hint := range c.filenameHints {
			if strings.Contains(name, string(hint)) {
				res.Category, res.Reason = hint, "filename"
				return res
			}
		}
	}

	if containsAny(lower, c.markers) {
		switch {
		case strings.Contains(lower, string(domain.CategoryPlatform)):
			res.Category, res.Reason = domain.CategoryPlatform, "marker"
			return res
		case strings.Contains(lower, string(domain.CategoryAgent)):
			res.Category, res.Reason = domain.CategoryAgent, "marker"
			return res
		}
	}

	for _, o := range c.overrides {
		if containsAny(lower, o.phrases) {
			res.Category, res.Reason = o.category, "override"
			return res
		}
	}

	res.Reason = "score"
	if res.PlatformScore > res.AgentScore {
		res.Category = domain.CategoryPlatform
	} else {
		res.Category = domain.CategoryAgent
	}
	return res
}

// countPresent counts how many keywords occur at least once.
func countPresent(text string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(text, k) {
			n++
		}
	}
	return n
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
