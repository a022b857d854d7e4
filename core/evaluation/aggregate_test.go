package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sheet(id, name, team string, q int, total Record) Sheet {
	return Sheet{
		UserID:  id,
		Name:    name,
		TeamID:  team,
		Year:    "2023-2024",
		Quarter: q,
		Records: map[string]Record{TotalID: total},
	}
}

func TestAggregate(t *testing.T) {
	sheets := []Sheet{
		sheet("1", "An", "MATH", 1, Record{Self: NewScore(80)}),
		sheet("2", "Bình", "MATH", 1, Record{Self: NewScore(70), TeamLeader: NewScore(90)}),
		sheet("3", "Cường", "VP", 1, Record{}),
		sheet("4", "Dung", "VP", 1, Record{Self: NewScore(33), Principal: NewScore(34)}),
		sheet("1", "An", "MATH", 2, Record{Self: NewScore(10)}),
	}

	t.Run("everything", func(t *testing.T) {
		sum := Aggregate(sheets, Filter{})
		assert.Equal(t, 5, sum.TotalMembers)
		assert.Equal(t, 80.0, sum.CompletionRate)
		assert.Equal(t, []TeamAverage{{TeamID: "MATH", Average: 60}, {TeamID: "VP", Average: 34}}, sum.TeamAverages)
		assert.Len(t, sum.Details, 5)
		assert.Equal(t, NewScore(90), sum.Details[1].Effective)
		assert.Equal(t, Absent, sum.Details[2].Effective)
	})

	t.Run("by quarter", func(t *testing.T) {
		sum := Aggregate(sheets, Filter{Quarter: 1, TeamID: "MATH"})
		assert.Equal(t, 2, sum.TotalMembers)
		assert.Equal(t, 100.0, sum.CompletionRate)
		assert.Equal(t, []TeamAverage{{TeamID: "MATH", Average: 85}}, sum.TeamAverages)
	})

	t.Run("by name", func(t *testing.T) {
		sum := Aggregate(sheets, Filter{Search: "BÌNH"})
		assert.Equal(t, 1, sum.TotalMembers)
		assert.Equal(t, "2", sum.Details[0].UserID)
	})

	t.Run("team without scores", func(t *testing.T) {
		sum := Aggregate(sheets, Filter{Search: "cường"})
		assert.Equal(t, 1, sum.TotalMembers)
		assert.Zero(t, sum.CompletionRate)
		assert.Empty(t, sum.TeamAverages)
	})

	t.Run("nothing matches", func(t *testing.T) {
		sum := Aggregate(sheets, Filter{Year: "2024-2025"})
		assert.Zero(t, sum.TotalMembers)
		assert.Zero(t, sum.CompletionRate)
		assert.NotNil(t, sum.TeamAverages)
		assert.NotNil(t, sum.Details)
	})
}

func Test_round1(t *testing.T) {
	assert.Equal(t, 33.3, round1(100.0/3))
	assert.Equal(t, 66.7, round1(200.0/3))
	assert.Equal(t, 85.0, round1(85))
}
