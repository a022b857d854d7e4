package evaluation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TotalID is the synthetic criterion holding the sum of the other criteria of a tier.
const TotalID = "TOTAL"

// Tier identifies who set a score.
type Tier string

const (
	TierSelf       Tier = "selfScore"
	TierTeamLeader Tier = "teamLeaderScore"
	TierPrincipal  Tier = "principalScore"
)

func (t Tier) Valid() bool {
	return t == TierSelf || t == TierTeamLeader || t == TierPrincipal
}

// Score is an optional score value. Zero is a present value.
type Score struct {
	Value int
	Valid bool
}

func NewScore(v int) Score {
	return Score{Value: v, Valid: true}
}

// scoreLimit bounds decoded scores so that any number converts to an int.
const scoreLimit = math.MaxInt32

// Absent is the zero Score.
var Absent = Score{}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(s.Value)), nil
}

// UnmarshalJSON accepts numbers, numeric strings, "" and null.
// Blank cells come back from the API as "". Fractions are truncated.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Absent
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*s = Absent
			return nil
		}
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.Errorf("invalid score %s", data)
	}
	f = math.Max(-scoreLimit, math.Min(math.Trunc(f), scoreLimit))
	*s = NewScore(int(f))
	return nil
}

// Record holds the independent tiers of one criterion of one evaluation.
type Record struct {
	Self       Score `json:"selfScore"`
	TeamLeader Score `json:"tlScore"`
	Principal  Score `json:"principalScore"`
}

// Tier returns the score of the given tier.
func (r Record) Tier(t Tier) Score {
	switch t {
	case TierTeamLeader:
		return r.TeamLeader
	case TierPrincipal:
		return r.Principal
	default:
		return r.Self
	}
}

// Set returns a copy of r with the given tier set to s.
func (r Record) Set(t Tier, s Score) Record {
	switch t {
	case TierTeamLeader:
		r.TeamLeader = s
	case TierPrincipal:
		r.Principal = s
	default:
		r.Self = s
	}
	return r
}

// Any reports whether any tier is present.
func (r Record) Any() bool {
	return r.Self.Valid || r.TeamLeader.Valid || r.Principal.Valid
}

// Resolve returns the effective score of r: principal, then team leader, then self.
func Resolve(r Record) Score {
	for _, s := range []Score{r.Principal, r.TeamLeader, r.Self} {
		if s.Valid {
			return s
		}
	}
	return Absent
}

// Prefill returns the value shown in a form editing tier t:
// its own value, else the closest lower tier.
func (r Record) Prefill(t Tier) Score {
	var order []Score
	switch t {
	case TierPrincipal:
		order = []Score{r.Principal, r.TeamLeader, r.Self}
	case TierTeamLeader:
		order = []Score{r.TeamLeader, r.Self}
	default:
		order = []Score{r.Self}
	}
	for _, s := range order {
		if s.Valid {
			return s
		}
	}
	return Absent
}

// Clamp bounds v to [0, max]. The second result reports whether v was changed.
// A negative or non-finite max counts as 0.
func Clamp(v int, max float64) (int, bool) {
	if max < 0 || math.IsNaN(max) || math.IsInf(max, 0) {
		max = 0
	}
	if v < 0 {
		return 0, true
	}
	if float64(v) > max {
		return int(math.Floor(max)), true
	}
	return v, false
}
