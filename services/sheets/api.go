package sheetsvc

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/evaluation"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/settings"
	"github.com/trezcool/danhgia/core/user"
)

// API exposes the evaluation API actions as typed calls, validating what comes back.
type API struct {
	caller   Caller
	validate *validator.Validate
}

var (
	_ session.Authenticator = (*API)(nil)
	_ user.Repository       = (*API)(nil)
	_ settings.Repository   = (*API)(nil)
	_ evaluation.Repository = (*API)(nil)
)

func NewAPI(caller Caller, validate *validator.Validate) *API {
	return &API{caller: caller, validate: validate}
}

func (api *API) Login(ctx context.Context, creds session.Credentials) (string, user.User, error) {
	var data loginDTO
	if err := api.caller.Call(ctx, ActionLogin, creds, &data); err != nil {
		return "", user.User{}, err
	}
	if err := api.validate.Struct(data); err != nil {
		return "", user.User{}, core.NewRemoteError(ActionLogin, "invalid login response", err)
	}
	return data.Token, data.User.user(), nil
}

func (api *API) GetSettings(ctx context.Context) (settings.Settings, error) {
	var data map[string]core.FlexString
	if err := api.caller.Call(ctx, ActionGetConfig, nil, &data); err != nil {
		return settings.Settings{}, err
	}
	if len(data) == 0 {
		return settings.Settings{}, core.NewNotFoundError("config")
	}
	s, err := settings.FromMap(data)
	if err != nil {
		if core.IsNotFound(err) {
			return settings.Settings{}, err
		}
		return settings.Settings{}, core.NewRemoteError(ActionGetConfig, "invalid config", err)
	}
	return s, nil
}

func (api *API) UpdateSettings(ctx context.Context, s settings.Settings) error {
	return api.caller.Call(ctx, ActionUpdateConfig, s.Update(), nil)
}

func (api *API) QueryUsers(ctx context.Context) ([]user.User, error) {
	var data []userDTO
	if err := api.caller.Call(ctx, ActionGetUsers, nil, &data); err != nil {
		return nil, err
	}
	return toUsers(ActionGetUsers, api.validate, data)
}

func (api *API) CreateUser(ctx context.Context, nu user.NewUser) error {
	return api.caller.Call(ctx, ActionAddUser, nu, nil)
}

func (api *API) UpdateUser(ctx context.Context, uu user.UpdateUser) error {
	return api.caller.Call(ctx, ActionUpdateUser, uu, nil)
}

func (api *API) DeleteUser(ctx context.Context, id string) error {
	return api.caller.Call(ctx, ActionDeleteUser, map[string]string{"id": id}, nil)
}

func (api *API) ImportUsers(ctx context.Context, users []user.NewUser) error {
	return api.caller.Call(ctx, ActionImportUsers, map[string]interface{}{"users": users}, nil)
}

func (api *API) GetTemplate(ctx context.Context, t user.EvalType) ([]evaluation.Criterion, error) {
	var data []criterionDTO
	if err := api.caller.Call(ctx, ActionGetEvaluationTemplate, map[string]user.EvalType{"type": t}, &data); err != nil {
		return nil, err
	}
	criteria := make([]evaluation.Criterion, 0, len(data))
	for _, d := range data {
		if err := api.validate.Struct(d); err != nil {
			return nil, core.NewRemoteError(ActionGetEvaluationTemplate, "invalid criterion", err)
		}
		criteria = append(criteria, d.criterion())
	}
	return criteria, nil
}

func (api *API) SubmitEvaluation(ctx context.Context, sub evaluation.Submission) error {
	return api.caller.Call(ctx, ActionSubmitEvaluation, sub, nil)
}

func (api *API) GetTeamData(ctx context.Context, p evaluation.Period) (evaluation.TeamData, error) {
	var data teamDataDTO
	if err := api.caller.Call(ctx, ActionGetTeamData, p, &data); err != nil {
		return evaluation.TeamData{}, err
	}
	members, err := toUsers(ActionGetTeamData, api.validate, data.TeamMembers)
	if err != nil {
		return evaluation.TeamData{}, err
	}
	evals := data.Evaluations
	if evals == nil {
		evals = make(map[string]map[string]evaluation.Record)
	}
	return evaluation.TeamData{Members: members, Evaluations: evals}, nil
}

func (api *API) GetDashboard(ctx context.Context, f evaluation.Filter) (evaluation.Summary, error) {
	var data dashboardDTO
	if err := api.caller.Call(ctx, ActionGetDashboardData, f, &data); err != nil {
		return evaluation.Summary{}, err
	}
	for _, d := range data.Details {
		if err := api.validate.Struct(d); err != nil {
			return evaluation.Summary{}, core.NewRemoteError(ActionGetDashboardData, "invalid dashboard details", err)
		}
	}
	return data.summary(), nil
}
