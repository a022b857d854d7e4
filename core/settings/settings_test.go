package settings_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/settings"
	testutil "github.com/trezcool/danhgia/tests"
)

func TestFromMap(t *testing.T) {
	tests := []struct {
		name    string
		m       map[string]core.FlexString
		want    settings.Settings
		wantErr bool
	}{
		{
			name: "full",
			m:    map[string]core.FlexString{"ACTIVE_YEAR": " 2023-2024 ", "ACTIVE_QUARTER": "3", "LOCKED_Q1": "TRUE", "LOCKED_Q2": "false"},
			want: settings.Settings{ActiveYear: "2023-2024", ActiveQuarter: 3, Locked: [4]bool{true, false, false, false}},
		},
		{
			name: "legacy lock keys",
			m:    map[string]core.FlexString{"ACTIVE_YEAR": "2023-2024", "ACTIVE_QUARTER": "2", "Q2_LOCKED": "true", "Q4_LOCKED": "1"},
			want: settings.Settings{ActiveYear: "2023-2024", ActiveQuarter: 2, Locked: [4]bool{false, true, false, true}},
		},
		{
			name: "new keys win",
			m:    map[string]core.FlexString{"ACTIVE_YEAR": "2023-2024", "LOCKED_Q1": "false", "Q1_LOCKED": "true"},
			want: settings.Settings{ActiveYear: "2023-2024", ActiveQuarter: 1},
		},
		{
			name: "quarter defaults to 1",
			m:    map[string]core.FlexString{"ACTIVE_YEAR": "2023-2024"},
			want: settings.Settings{ActiveYear: "2023-2024", ActiveQuarter: 1},
		},
		{name: "no year", m: map[string]core.FlexString{"ACTIVE_QUARTER": "1"}, wantErr: true},
		{name: "bad quarter", m: map[string]core.FlexString{"ACTIVE_YEAR": "2023-2024", "ACTIVE_QUARTER": "5"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := settings.FromMap(tt.m)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettings_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(settings.Settings{ActiveYear: "2023-2024", ActiveQuarter: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"year": "2023-2024", "quarter": 2, "lockedQuarters": []}`, string(data))

	s := settings.Settings{Locked: [4]bool{false, true, false, true}}
	assert.Equal(t, []int{2, 4}, s.LockedQuarters())
	assert.True(t, s.IsLocked(2))
	assert.False(t, s.IsLocked(1))
	assert.False(t, s.IsLocked(0))
	assert.False(t, s.IsLocked(5))
}

type fakeRepo struct {
	s settings.Settings
}

func (r *fakeRepo) GetSettings(context.Context) (settings.Settings, error) { return r.s, nil }

func (r *fakeRepo) UpdateSettings(_ context.Context, s settings.Settings) error {
	r.s = s
	return nil
}

func TestService_Update(t *testing.T) {
	validate, translator := testutil.NewValidator()
	repo := &fakeRepo{}
	svc := settings.NewService(repo, validate, translator)
	ctx := context.Background()

	tests := []struct {
		name    string
		u       settings.Update
		wantErr bool
	}{
		{name: "no year", u: settings.Update{ActiveYear: "  ", ActiveQuarter: 1}, wantErr: true},
		{name: "quarter out of range", u: settings.Update{ActiveYear: "2023-2024", ActiveQuarter: 5}, wantErr: true},
		{name: "locked quarter out of range", u: settings.Update{ActiveYear: "2023-2024", ActiveQuarter: 1, LockedQuarters: []int{0}}, wantErr: true},
		{name: "duplicate locked quarters", u: settings.Update{ActiveYear: "2023-2024", ActiveQuarter: 1, LockedQuarters: []int{2, 2}}, wantErr: true},
		{name: "ok", u: settings.Update{ActiveYear: " 2024-2025", ActiveQuarter: 2, LockedQuarters: []int{3, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Update(ctx, tt.u)
			if tt.wantErr {
				assert.IsType(t, &core.ValidationError{}, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "2024-2025", got.ActiveYear)
			assert.Equal(t, []int{1, 3}, got.LockedQuarters())
		})
	}

	s, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.ActiveQuarter)
}
