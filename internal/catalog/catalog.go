// Package catalog defines the assessment records served by the recommender
// and the candidate lists that flow through the pipeline.
package catalog

import (
	"strings"
)

// Known test-type categories. TestType values in the corpus may hold more
// than one of these, serialized as a single string.
const (
	TypeKnowledgeSkills     = "Knowledge & Skills"
	TypePersonalityBehavior = "Personality & Behavior"
	TypeAbilityAptitude     = "Ability & Aptitude"
	TypeSimulations         = "Simulations"
	TypeCompetencies        = "Competencies"

	// AllTypes disables type filtering.
	AllTypes = "All Types"
)

// Metadata keys stored alongside each indexed assessment.
const (
	KeyName            = "name"
	KeyURL             = "url"
	KeyDescription     = "description"
	KeyDuration        = "duration"
	KeyTestType        = "test_type"
	KeyRemoteSupport   = "remote_support"
	KeyAdaptiveSupport = "adaptive_support"
)

// Assessment is a catalog entry. It is owned by the index and never mutated
// by the pipeline.
type Assessment struct {
	ID              string `json:"-"`
	Name            string `json:"name"`
	URL             string `json:"url"`
	Description     string `json:"description"`
	TestType        string `json:"test_type"`
	Duration        string `json:"duration"`
	RemoteSupport   string `json:"remote_support"`
	AdaptiveSupport string `json:"adaptive_support"`
}

// Metadata flattens the assessment into index payload fields.
func (a Assessment) Metadata() map[string]string {
	return map[string]string{
		KeyName:            a.Name,
		KeyURL:             a.URL,
		KeyDescription:     a.Description,
		KeyDuration:        a.Duration,
		KeyTestType:        a.TestType,
		KeyRemoteSupport:   a.RemoteSupport,
		KeyAdaptiveSupport: a.AdaptiveSupport,
	}
}

// FromMetadata rebuilds an assessment from index payload fields.
func FromMetadata(id string, md map[string]string) Assessment {
	return Assessment{
		ID:              id,
		Name:            md[KeyName],
		URL:             md[KeyURL],
		Description:     md[KeyDescription],
		TestType:        md[KeyTestType],
		Duration:        md[KeyDuration],
		RemoteSupport:   md[KeyRemoteSupport],
		AdaptiveSupport: md[KeyAdaptiveSupport],
	}
}

// HasType reports whether the assessment's test type contains category.
// Matching is by substring because TestType may be a serialized set.
func (a Assessment) HasType(category string) bool {
	return strings.Contains(a.TestType, category)
}

// Candidate is an assessment retrieved for one query.
type Candidate struct {
	Assessment

	// Distance is the vector distance to the query; lower is more similar.
	Distance float32

	// Document is the text that was embedded for this assessment.
	Document string
}

// RankedList is an ordered candidate list, most relevant first.
type RankedList []Candidate

// Head returns at most n leading candidates. The result shares storage
// with l.
func (l RankedList) Head(n int) RankedList {
	if n < 0 {
		n = 0
	}
	if n > len(l) {
		n = len(l)
	}
	return l[:n]
}

// FilterType keeps candidates whose test type contains category. An empty
// category or AllTypes returns l unchanged.
func (l RankedList) FilterType(category string) RankedList {
	category = strings.TrimSpace(category)
	if category == "" || category == AllTypes {
		return l
	}
	filtered := make(RankedList, 0, len(l))
	for _, c := range l {
		if c.HasType(category) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// Dedupe drops later candidates that repeat an assessment ID. Candidates
// without an ID are keyed by URL.
func (l RankedList) Dedupe() RankedList {
	seen := make(map[string]struct{}, len(l))
	out := make(RankedList, 0, len(l))
	for _, c := range l {
		key := c.ID
		if key == "" {
			key = "url:" + c.URL
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
