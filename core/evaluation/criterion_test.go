package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCriterion_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		c        Criterion
		wantMax  float64
		wantDesc string
	}{
		{name: "max set", c: Criterion{MaxScore: 10, Description: "15"}, wantMax: 10, wantDesc: "15"},
		{name: "max in description", c: Criterion{Description: " 15 "}, wantMax: 15},
		{name: "text description", c: Criterion{Description: "Collaborates with peers"}, wantDesc: "Collaborates with peers"},
		{name: "nothing", c: Criterion{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.c.Normalize()
			assert.Equal(t, tt.wantMax, got.MaxScore)
			assert.Equal(t, tt.wantDesc, got.Description)
		})
	}
}

func TestGroup(t *testing.T) {
	criteria := []Criterion{
		{ID: "c1", Section: "I", MaxScore: 10},
		{ID: "c2", Section: "II", MaxScore: 5},
		{ID: "c3", Section: "I", MaxScore: 10},
		{ID: "c4", Section: "i", MaxScore: 1},
	}

	sections := Group(criteria)
	assert.Equal(t, []Section{
		{Label: "I", Criteria: []Criterion{criteria[0], criteria[2]}},
		{Label: "II", Criteria: []Criterion{criteria[1]}},
		{Label: "i", Criteria: []Criterion{criteria[3]}},
	}, sections)

	assert.Equal(t, sections, Group(Flatten(sections)), "grouping is idempotent")
	assert.Equal(t, 26.0, MaxTotal(criteria))
	assert.Empty(t, Group(nil))
}
