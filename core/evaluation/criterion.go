package evaluation

import (
	"math"
	"strconv"
	"strings"
)

// Criterion is one scored line of an evaluation template.
type Criterion struct {
	ID          string  `json:"id"`
	Section     string  `json:"section"`
	Text        string  `json:"criteria"`
	Description string  `json:"description,omitempty"`
	MaxScore    float64 `json:"maxScore"`
}

// Normalize applies the legacy maxScore fallback to c.
func (c Criterion) Normalize() Criterion {
	c.MaxScore, c.Description = legacyMaxScore(c.MaxScore, c.Description)
	return c
}

// legacyMaxScore handles templates whose maximum was typed in the description column:
// when max is unset and desc is a finite number, desc becomes the maximum and is dropped.
// TODO: remove once every template sheet has its maxScore column filled in.
func legacyMaxScore(max float64, desc string) (float64, string) {
	if max != 0 {
		return max, desc
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(desc), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return max, desc
	}
	return f, ""
}

// Section is a labelled run of criteria, in template order.
type Section struct {
	Label    string      `json:"section"`
	Criteria []Criterion `json:"items"`
}

// Group partitions criteria into sections ordered by first occurrence.
// Criteria keep their input order within a section; labels are compared verbatim.
func Group(criteria []Criterion) []Section {
	sections := make([]Section, 0)
	index := make(map[string]int)
	for _, c := range criteria {
		i, ok := index[c.Section]
		if !ok {
			i = len(sections)
			index[c.Section] = i
			sections = append(sections, Section{Label: c.Section})
		}
		sections[i].Criteria = append(sections[i].Criteria, c)
	}
	return sections
}

// Flatten lists the criteria of sections in order.
func Flatten(sections []Section) []Criterion {
	var criteria []Criterion
	for _, s := range sections {
		criteria = append(criteria, s.Criteria...)
	}
	return criteria
}

// MaxTotal sums the maxima of criteria.
func MaxTotal(criteria []Criterion) float64 {
	var total float64
	for _, c := range criteria {
		total += c.MaxScore
	}
	return total
}
