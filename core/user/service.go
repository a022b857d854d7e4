package user

import (
	"context"
	"fmt"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
)

var (
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrNoUsers        = errors.New("no users to import")
)

type (
	// Repository is the user store, i.e. the users sheet of the evaluation API.
	Repository interface {
		QueryUsers(ctx context.Context) ([]User, error)
		CreateUser(ctx context.Context, nu NewUser) error
		UpdateUser(ctx context.Context, uu UpdateUser) error
		DeleteUser(ctx context.Context, id string) error
		ImportUsers(ctx context.Context, users []NewUser) error
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

// Query returns the users matching filter, in the store's order.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	users, err := svc.repo.QueryUsers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	filter.Clean()
	res := make([]User, 0, len(users))
	for _, usr := range users {
		if filter.Match(usr) {
			res = append(res, usr)
		}
	}
	return res, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	users, err := svc.repo.QueryUsers(ctx)
	if err != nil {
		return User{}, errors.Wrap(err, "querying users")
	}
	for _, usr := range users {
		if usr.ID == id {
			return usr, nil
		}
	}
	return User{}, core.NewNotFoundError("user")
}

// GetByUsername looks uname up, case-insensitively.
func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	users, err := svc.repo.QueryUsers(ctx)
	if err != nil {
		return User{}, errors.Wrap(err, "querying users")
	}
	uname = core.CleanString(uname)
	for _, usr := range users {
		if strings.EqualFold(usr.Username, uname) {
			return usr, nil
		}
	}
	return User{}, core.NewNotFoundError("user")
}

func (svc *Service) checkUniqueness(ctx context.Context, uname string, excludedID string) error {
	users, err := svc.repo.QueryUsers(ctx)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	for _, usr := range users {
		if strings.EqualFold(usr.Username, uname) && usr.ID != excludedID {
			return core.NewValidationError(
				ErrUsernameExists,
				core.FieldError{Field: "username", Error: ErrUsernameExists.Error()},
			)
		}
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) error {
	if err := nu.Validate(svc.validate); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	if err := svc.checkUniqueness(ctx, nu.Username, ""); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.CreateUser(ctx, nu), "creating user")
}

func (svc *Service) Update(ctx context.Context, uu UpdateUser) error {
	if err := uu.Validate(svc.validate); err != nil {
		return core.TranslateValidationErrors(err, svc.translator)
	}
	if _, err := svc.GetByID(ctx, uu.ID); err != nil {
		return err
	}
	if err := svc.checkUniqueness(ctx, uu.Username, uu.ID); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.UpdateUser(ctx, uu), "updating user")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteUser(ctx, id), "deleting user")
}

// Import validates every row before sending the whole batch at once.
// Field errors are keyed by spreadsheet row, e.g. "row 3: username";
// users without a Row are numbered as if read from a sheet without blank rows.
func (svc *Service) Import(ctx context.Context, users []NewUser) error {
	if len(users) == 0 {
		return core.NewValidationError(ErrNoUsers)
	}

	existing, err := svc.repo.QueryUsers(ctx)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	taken := make(map[string]bool, len(existing))
	for _, usr := range existing {
		taken[strings.ToLower(usr.Username)] = true
	}

	var flds []core.FieldError
	seen := make(map[string]int, len(users))
	for i := range users {
		row := users[i].Row
		if row == 0 {
			row = i + 2 // header is row 1
		}
		if err := users[i].Validate(svc.validate); err != nil {
			vErr, ok := core.TranslateValidationErrors(err, svc.translator).(*core.ValidationError)
			if !ok {
				return errors.Wrap(err, "validating users")
			}
			for _, fld := range vErr.Fields {
				flds = append(flds, core.FieldError{Field: fmt.Sprintf("row %d: %s", row, fld.Field), Error: fld.Error})
			}
			continue
		}
		if taken[users[i].Username] {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("row %d: username", row),
				Error: ErrUsernameExists.Error(),
			})
			continue
		}
		if prev, dup := seen[users[i].Username]; dup {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("row %d: username", row),
				Error: fmt.Sprintf("duplicates row %d", prev),
			})
			continue
		}
		seen[users[i].Username] = row
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid users"), flds...)
	}
	return errors.Wrap(svc.repo.ImportUsers(ctx, users), "importing users")
}
