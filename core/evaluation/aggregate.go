package evaluation

import (
	"math"
	"strings"
)

// Sheet is the evaluation of one member for one period, keyed by criterion ID.
type Sheet struct {
	UserID  string            `json:"userId"`
	Name    string            `json:"name"`
	TeamID  string            `json:"teamId"`
	Year    string            `json:"year"`
	Quarter int               `json:"quarter"`
	Records map[string]Record `json:"records"`
}

// Total returns the TOTAL record of s.
func (s Sheet) Total() Record {
	return s.Records[TotalID]
}

// Filter narrows the sheets taken into account by Aggregate.
// Zero values match everything.
type Filter struct {
	Search  string `query:"search" json:"search,omitempty"`
	TeamID  string `query:"team" json:"teamId,omitempty"`
	Quarter int    `query:"quarter" json:"quarter,omitempty"`
	Year    string `query:"year" json:"year,omitempty"`
}

func (f Filter) Match(s Sheet) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Search)) {
		return false
	}
	if f.TeamID != "" && s.TeamID != f.TeamID {
		return false
	}
	if f.Quarter != 0 && s.Quarter != f.Quarter {
		return false
	}
	if f.Year != "" && s.Year != f.Year {
		return false
	}
	return true
}

type (
	TeamAverage struct {
		TeamID  string  `json:"team"`
		Average float64 `json:"average"`
	}

	MemberTotal struct {
		UserID  string `json:"userId"`
		Name    string `json:"name"`
		TeamID  string `json:"teamId"`
		Year    string `json:"year"`
		Quarter int    `json:"quarter"`
		Total   Record `json:"total"`
		// Effective is the resolved TOTAL.
		Effective Score `json:"effective"`
	}

	Summary struct {
		TotalMembers   int           `json:"totalMembers"`
		CompletionRate float64       `json:"completionRate"`
		TeamAverages   []TeamAverage `json:"teamAverages"`
		Details        []MemberTotal `json:"details"`
	}
)

// Aggregate computes dashboard statistics over the sheets matching filter.
// Each sheet counts as one member.
func Aggregate(sheets []Sheet, filter Filter) Summary {
	sum := Summary{
		TeamAverages: make([]TeamAverage, 0),
		Details:      make([]MemberTotal, 0),
	}

	type acc struct {
		total float64
		count int
	}
	var (
		completed int
		teamOrder []string
		teams     = make(map[string]*acc)
	)

	for _, s := range sheets {
		if !filter.Match(s) {
			continue
		}
		sum.TotalMembers++

		total := s.Total()
		eff := Resolve(total)
		sum.Details = append(sum.Details, MemberTotal{
			UserID:    s.UserID,
			Name:      s.Name,
			TeamID:    s.TeamID,
			Year:      s.Year,
			Quarter:   s.Quarter,
			Total:     total,
			Effective: eff,
		})

		if total.Any() {
			completed++
		}
		if _, ok := teams[s.TeamID]; !ok {
			teams[s.TeamID] = &acc{}
			teamOrder = append(teamOrder, s.TeamID)
		}
		if eff.Valid {
			teams[s.TeamID].total += float64(eff.Value)
			teams[s.TeamID].count++
		}
	}

	if sum.TotalMembers > 0 {
		sum.CompletionRate = 100 * float64(completed) / float64(sum.TotalMembers)
	}
	for _, team := range teamOrder {
		a := teams[team]
		if a.count == 0 {
			continue
		}
		sum.TeamAverages = append(sum.TeamAverages, TeamAverage{TeamID: team, Average: round1(a.total / float64(a.count))})
	}
	return sum
}

// round1 rounds x to one decimal place, halves away from zero.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
