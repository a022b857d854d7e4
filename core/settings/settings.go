// Package settings holds the process-wide evaluation period: active year, active quarter and quarter locks.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
)

// Keys of the config sheet.
const (
	KeyActiveYear    = "ACTIVE_YEAR"
	KeyActiveQuarter = "ACTIVE_QUARTER"
)

// Quarters is the number of quarters in a school year.
const Quarters = 4

// LockedKey returns the config key of quarter q's lock flag, e.g. LOCKED_Q1.
func LockedKey(q int) string {
	return fmt.Sprintf("LOCKED_Q%d", q)
}

// legacyLockedKey is the older spelling of LockedKey, e.g. Q1_LOCKED.
func legacyLockedKey(q int) string {
	return fmt.Sprintf("Q%d_LOCKED", q)
}

type Settings struct {
	ActiveYear    string
	ActiveQuarter int
	Locked        [Quarters]bool
}

func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Year           string `json:"year"`
		Quarter        int    `json:"quarter"`
		LockedQuarters []int  `json:"lockedQuarters"`
	}{s.ActiveYear, s.ActiveQuarter, s.LockedQuarters()})
}

// IsLocked reports whether quarter q is locked. Out of range quarters are never locked.
func (s Settings) IsLocked(q int) bool {
	if q < 1 || q > Quarters {
		return false
	}
	return s.Locked[q-1]
}

// LockedQuarters lists the locked quarters in ascending order.
func (s Settings) LockedQuarters() []int {
	res := make([]int, 0, Quarters)
	for i, locked := range s.Locked {
		if locked {
			res = append(res, i+1)
		}
	}
	return res
}

// Update returns s in the shape of an admin config change, which is also the updateConfig payload.
func (s Settings) Update() Update {
	return Update{ActiveYear: s.ActiveYear, ActiveQuarter: s.ActiveQuarter, LockedQuarters: s.LockedQuarters()}
}

// FromMap reads settings from the config sheet's key/value pairs.
func FromMap(m map[string]core.FlexString) (Settings, error) {
	var s Settings
	s.ActiveYear = core.CleanString(m[KeyActiveYear].String())
	if s.ActiveYear == "" {
		return Settings{}, core.NewNotFoundError("active year")
	}

	s.ActiveQuarter = 1
	if raw := core.CleanString(m[KeyActiveQuarter].String()); raw != "" {
		q, err := strconv.Atoi(raw)
		if err != nil || q < 1 || q > Quarters {
			return Settings{}, errors.Errorf("invalid %s %q", KeyActiveQuarter, raw)
		}
		s.ActiveQuarter = q
	}

	for q := 1; q <= Quarters; q++ {
		if v, ok := m[LockedKey(q)]; ok {
			s.Locked[q-1] = v.Bool()
		} else {
			s.Locked[q-1] = m[legacyLockedKey(q)].Bool()
		}
	}
	return s, nil
}

// Update is the payload of an admin config change.
type Update struct {
	ActiveYear     string `json:"year" validate:"required,max=20"`
	ActiveQuarter  int    `json:"quarter" validate:"required,min=1,max=4"`
	LockedQuarters []int  `json:"lockedQuarters" validate:"omitempty,unique,dive,min=1,max=4"`
}

func (u *Update) Validate(validate *validator.Validate) error {
	u.ActiveYear = core.CleanString(u.ActiveYear)
	return validate.Struct(u)
}

// Settings returns the settings u would produce.
func (u Update) Settings() Settings {
	s := Settings{ActiveYear: u.ActiveYear, ActiveQuarter: u.ActiveQuarter}
	for _, q := range u.LockedQuarters {
		s.Locked[q-1] = true
	}
	return s
}

type (
	Repository interface {
		GetSettings(ctx context.Context) (Settings, error)
		UpdateSettings(ctx context.Context, s Settings) error
	}

	Service struct {
		repo       Repository
		validate   *validator.Validate
		translator ut.Translator
	}
)

func NewService(repo Repository, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{repo: repo, validate: validate, translator: translator}
}

func (svc *Service) Get(ctx context.Context) (Settings, error) {
	s, err := svc.repo.GetSettings(ctx)
	return s, errors.Wrap(err, "getting settings")
}

func (svc *Service) Update(ctx context.Context, u Update) (Settings, error) {
	if err := u.Validate(svc.validate); err != nil {
		return Settings{}, core.TranslateValidationErrors(err, svc.translator)
	}
	s := u.Settings()
	if err := svc.repo.UpdateSettings(ctx, s); err != nil {
		return Settings{}, errors.Wrap(err, "updating settings")
	}
	return s, nil
}
