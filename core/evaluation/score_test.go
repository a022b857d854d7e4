package evaluation

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Score
		wantErr bool
	}{
		{name: "number", data: `7`, want: NewScore(7)},
		{name: "zero", data: `0`, want: NewScore(0)},
		{name: "decimal", data: `7.6`, want: NewScore(7)},
		{name: "negative decimal", data: `"-7.6"`, want: NewScore(-7)},
		{name: "huge", data: `1e30`, want: NewScore(math.MaxInt32)},
		{name: "huge negative", data: `"-1e30"`, want: NewScore(-math.MaxInt32)},
		{name: "nan", data: `"NaN"`, wantErr: true},
		{name: "numeric string", data: `" 12 "`, want: NewScore(12)},
		{name: "negative string", data: `"-3"`, want: NewScore(-3)},
		{name: "blank cell", data: `""`, want: Absent},
		{name: "null", data: `null`, want: Absent},
		{name: "text", data: `"ten"`, wantErr: true},
		{name: "bool", data: `true`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Score
			err := json.Unmarshal([]byte(tt.data), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Record{Self: NewScore(0), TeamLeader: NewScore(9)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"selfScore": 0, "tlScore": 9, "principalScore": null}`, string(data))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want Score
	}{
		{name: "nothing", rec: Record{}, want: Absent},
		{name: "self only", rec: Record{Self: NewScore(20)}, want: NewScore(20)},
		{name: "team leader wins", rec: Record{Self: NewScore(20), TeamLeader: NewScore(18)}, want: NewScore(18)},
		{name: "principal wins", rec: Record{Self: NewScore(20), TeamLeader: NewScore(18), Principal: NewScore(25)}, want: NewScore(25)},
		{name: "zero is present", rec: Record{Self: NewScore(20), Principal: NewScore(0)}, want: NewScore(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.rec))
		})
	}
}

func TestRecord_Prefill(t *testing.T) {
	rec := Record{Self: NewScore(8)}
	assert.Equal(t, NewScore(8), rec.Prefill(TierSelf))
	assert.Equal(t, NewScore(8), rec.Prefill(TierTeamLeader))
	assert.Equal(t, NewScore(8), rec.Prefill(TierPrincipal))

	rec = rec.Set(TierTeamLeader, NewScore(6))
	assert.Equal(t, NewScore(8), rec.Prefill(TierSelf))
	assert.Equal(t, NewScore(6), rec.Prefill(TierTeamLeader))
	assert.Equal(t, NewScore(6), rec.Prefill(TierPrincipal))

	assert.Equal(t, Absent, Record{TeamLeader: NewScore(6)}.Prefill(TierSelf))
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name        string
		v           int
		max         float64
		want        int
		wantClamped bool
	}{
		{name: "in range", v: 7, max: 10, want: 7},
		{name: "at max", v: 10, max: 10, want: 10},
		{name: "above max", v: 12, max: 10, want: 10, wantClamped: true},
		{name: "fractional max", v: 8, max: 7.5, want: 7, wantClamped: true},
		{name: "negative", v: -3, max: 10, want: 0, wantClamped: true},
		{name: "huge", v: math.MaxInt32, max: 10, want: 10, wantClamped: true},
		{name: "negative max", v: 7, max: -5, want: 0, wantClamped: true},
		{name: "nan max", v: 50, max: math.NaN(), want: 0, wantClamped: true},
		{name: "infinite max", v: 50, max: math.Inf(1), want: 0, wantClamped: true},
		{name: "zero under bad max", v: 0, max: math.NaN(), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := Clamp(tt.v, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantClamped, clamped)
		})
	}
}
