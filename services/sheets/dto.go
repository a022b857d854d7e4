package sheetsvc

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/evaluation"
	"github.com/trezcool/danhgia/core/user"
)

// Sheet rows are loosely typed: IDs, quarters and maxima may come back as numbers or strings.

type userDTO struct {
	ID       core.FlexString `json:"id" validate:"required"`
	Username core.FlexString `json:"username" validate:"required"`
	Name     string          `json:"name"`
	Role     string          `json:"role" validate:"required,role"`
	TeamID   core.FlexString `json:"teamId"`
	Email    string          `json:"email"`
}

func (d userDTO) user() user.User {
	role, _ := user.ParseRole(d.Role)
	return user.User{
		ID:       core.CleanString(d.ID.String()),
		Username: core.CleanString(d.Username.String()),
		Name:     core.CleanString(d.Name),
		Role:     role,
		TeamID:   core.CleanString(d.TeamID.String()),
		Email:    core.CleanString(d.Email),
	}
}

func toUsers(action string, validate *validator.Validate, dtos []userDTO) ([]user.User, error) {
	users := make([]user.User, 0, len(dtos))
	for _, d := range dtos {
		if err := validate.Struct(d); err != nil {
			return nil, core.NewRemoteError(action, "invalid user", err)
		}
		users = append(users, d.user())
	}
	return users, nil
}

type loginDTO struct {
	Token string  `json:"token" validate:"required"`
	User  userDTO `json:"user"`
}

type criterionDTO struct {
	ID          core.FlexString `json:"id" validate:"required"`
	Section     core.FlexString `json:"section"`
	Criteria    core.FlexString `json:"criteria"`
	Description core.FlexString `json:"description"`
	MaxScore    core.FlexString `json:"maxScore"`
}

// criterion converts d as is: a missing or unreadable maximum stays 0 until the criterion is normalized.
func (d criterionDTO) criterion() evaluation.Criterion {
	max, _ := d.MaxScore.Float()
	return evaluation.Criterion{
		ID:          core.CleanString(d.ID.String()),
		Section:     d.Section.String(),
		Text:        d.Criteria.String(),
		Description: d.Description.String(),
		MaxScore:    max,
	}
}

type teamDataDTO struct {
	TeamMembers []userDTO                               `json:"teamMembers"`
	Evaluations map[string]map[string]evaluation.Record `json:"evaluations"`
}

type memberTotalDTO struct {
	UserID  core.FlexString   `json:"userId" validate:"required"`
	Name    string            `json:"name"`
	TeamID  core.FlexString   `json:"teamId"`
	Year    core.FlexString   `json:"year"`
	Quarter core.FlexString   `json:"quarter"`
	Total   evaluation.Record `json:"total"`
}

type dashboardDTO struct {
	TotalMembers   int                      `json:"totalMembers"`
	CompletionRate float64                  `json:"completionRate"`
	TeamAverages   []evaluation.TeamAverage `json:"teamAverages"`
	Details        []memberTotalDTO         `json:"details"`
}

func (d dashboardDTO) summary() evaluation.Summary {
	sum := evaluation.Summary{
		TotalMembers:   d.TotalMembers,
		CompletionRate: d.CompletionRate,
		TeamAverages:   d.TeamAverages,
		Details:        make([]evaluation.MemberTotal, 0, len(d.Details)),
	}
	for _, m := range d.Details {
		q, _ := m.Quarter.Float()
		sum.Details = append(sum.Details, evaluation.MemberTotal{
			UserID:    core.CleanString(m.UserID.String()),
			Name:      m.Name,
			TeamID:    m.TeamID.String(),
			Year:      m.Year.String(),
			Quarter:   int(q),
			Total:     m.Total,
			Effective: evaluation.Resolve(m.Total),
		})
	}
	return sum
}
