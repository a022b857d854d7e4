package evaluation

import (
	"context"
	"fmt"
	"net/mail"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/settings"
	"github.com/trezcool/danhgia/core/user"
)

type (
	Period struct {
		Year    string `json:"year"`
		Quarter int    `json:"quarter"`
	}

	ScoreEntry struct {
		CriteriaID string `json:"criteriaId"`
		Score      int    `json:"score"`
		Type       Tier   `json:"type"`
	}

	// Submission is one tier of one member's evaluation, TOTAL included.
	// Every entry of Scores carries the tier.
	Submission struct {
		UserID  string        `json:"userId"`
		Year    string        `json:"year"`
		Quarter int           `json:"quarter"`
		Type    user.EvalType `json:"type"`
		Scores  []ScoreEntry  `json:"scores"`
	}

	// TeamData holds the members visible to a reviewer and their records, by user ID then criterion ID.
	TeamData struct {
		Members     []user.User                  `json:"teamMembers"`
		Evaluations map[string]map[string]Record `json:"evaluations"`
	}

	Repository interface {
		GetTemplate(ctx context.Context, t user.EvalType) ([]Criterion, error)
		SubmitEvaluation(ctx context.Context, sub Submission) error
		GetTeamData(ctx context.Context, p Period) (TeamData, error)
		GetDashboard(ctx context.Context, f Filter) (Summary, error)
	}

	SettingsProvider interface {
		Get(ctx context.Context) (settings.Settings, error)
	}
)

type (
	Form struct {
		Period   Period        `json:"period"`
		Type     user.EvalType `json:"type"`
		Sections []Section     `json:"sections"`
		MaxTotal float64       `json:"maxTotal"`
		Locked   bool          `json:"locked"`
	}

	// MemberForm is the form a reviewer fills in for a team member.
	MemberForm struct {
		Form
		Member  user.User         `json:"member"`
		Tier    Tier              `json:"tier"`
		Records map[string]Record `json:"records"`
		Prefill map[string]Score  `json:"prefill"`
	}

	// MemberStatus summarizes a team member's evaluation for the reviewer's list.
	MemberStatus struct {
		Member    user.User `json:"member"`
		Total     Record    `json:"total"`
		Effective Score     `json:"effective"`
		Status    Status    `json:"status"`
	}

	Adjustment struct {
		CriteriaID string  `json:"criteriaId"`
		Entered    int     `json:"entered"`
		Stored     int     `json:"stored"`
		MaxScore   float64 `json:"maxScore"`
	}

	Result struct {
		Period   Period       `json:"period"`
		Type     Tier         `json:"type"`
		Total    int          `json:"total"`
		MaxTotal float64      `json:"maxTotal"`
		Clamped  []Adjustment `json:"clamped"`
	}
)

// Status is the progress of a member's evaluation.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSelfScored Status = "self_scored"
	StatusReviewed   Status = "reviewed"
)

func statusOf(total Record) Status {
	switch {
	case total.TeamLeader.Valid || total.Principal.Valid:
		return StatusReviewed
	case total.Self.Valid:
		return StatusSelfScored
	default:
		return StatusPending
	}
}

type Service struct {
	repo     Repository
	settings SettingsProvider
	mailSvc  core.EmailService
	logger   core.Logger
}

func NewService(repo Repository, settingsProvider SettingsProvider, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{repo: repo, settings: settingsProvider, mailSvc: mailSvc, logger: logger}
}

func (svc *Service) period(ctx context.Context) (Period, settings.Settings, error) {
	s, err := svc.settings.Get(ctx)
	if err != nil {
		return Period{}, settings.Settings{}, err
	}
	return Period{Year: s.ActiveYear, Quarter: s.ActiveQuarter}, s, nil
}

// form builds the evaluation form of usr for the active period.
func (svc *Service) form(ctx context.Context, usr user.User) (Form, error) {
	p, s, err := svc.period(ctx)
	if err != nil {
		return Form{}, err
	}

	evalType := user.EvalTypeFor(usr)
	criteria, err := svc.repo.GetTemplate(ctx, evalType)
	if err != nil {
		return Form{}, errors.Wrapf(err, "getting %s template", evalType)
	}
	if len(criteria) == 0 {
		return Form{}, core.NewNotFoundError(fmt.Sprintf("%s template", evalType))
	}
	for i := range criteria {
		criteria[i] = criteria[i].Normalize()
	}

	return Form{
		Period:   p,
		Type:     evalType,
		Sections: Group(criteria),
		MaxTotal: MaxTotal(criteria),
		Locked:   s.IsLocked(p.Quarter),
	}, nil
}

// Form returns the self-evaluation form of usr.
func (svc *Service) Form(ctx context.Context, usr user.User) (Form, error) {
	return svc.form(ctx, usr)
}

// SubmitSelf stores the self scores of usr.
func (svc *Service) SubmitSelf(ctx context.Context, usr user.User, scores map[string]Score) (Result, error) {
	form, err := svc.form(ctx, usr)
	if err != nil {
		return Result{}, err
	}
	return svc.submit(ctx, usr, form, TierSelf, scores)
}

// submit clamps scores to the form's maxima, appends TOTAL and sends the tier.
// Criteria without a score are sent as 0.
func (svc *Service) submit(ctx context.Context, member user.User, form Form, tier Tier, scores map[string]Score) (Result, error) {
	res := Result{Period: form.Period, Type: tier, MaxTotal: form.MaxTotal, Clamped: make([]Adjustment, 0)}
	sub := Submission{
		UserID:  member.ID,
		Year:    form.Period.Year,
		Quarter: form.Period.Quarter,
		Type:    form.Type,
	}

	for _, c := range Flatten(form.Sections) {
		var v int
		if s, ok := scores[c.ID]; ok && s.Valid {
			stored, clamped := Clamp(s.Value, c.MaxScore)
			if clamped {
				res.Clamped = append(res.Clamped, Adjustment{CriteriaID: c.ID, Entered: s.Value, Stored: stored, MaxScore: c.MaxScore})
			}
			v = stored
		}
		res.Total += v
		sub.Scores = append(sub.Scores, ScoreEntry{CriteriaID: c.ID, Score: v, Type: tier})
	}
	sub.Scores = append(sub.Scores, ScoreEntry{CriteriaID: TotalID, Score: res.Total, Type: tier})

	if err := svc.repo.SubmitEvaluation(ctx, sub); err != nil {
		return Result{}, errors.Wrap(err, "submitting evaluation")
	}
	return res, nil
}

// Team lists the members visible to the reviewer with the status of their evaluation.
func (svc *Service) Team(ctx context.Context) (Period, []MemberStatus, error) {
	p, _, err := svc.period(ctx)
	if err != nil {
		return Period{}, nil, err
	}
	data, err := svc.repo.GetTeamData(ctx, p)
	if err != nil {
		return Period{}, nil, errors.Wrap(err, "getting team data")
	}

	res := make([]MemberStatus, 0, len(data.Members))
	for _, m := range data.Members {
		total := data.Evaluations[m.ID][TotalID]
		res = append(res, MemberStatus{Member: m, Total: total, Effective: Resolve(total), Status: statusOf(total)})
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Member.TeamID < res[j].Member.TeamID })
	return p, res, nil
}

func (svc *Service) member(ctx context.Context, p Period, memberID string) (user.User, map[string]Record, error) {
	data, err := svc.repo.GetTeamData(ctx, p)
	if err != nil {
		return user.User{}, nil, errors.Wrap(err, "getting team data")
	}
	for _, m := range data.Members {
		if m.ID == memberID {
			records := data.Evaluations[m.ID]
			if records == nil {
				records = make(map[string]Record)
			}
			return m, records, nil
		}
	}
	return user.User{}, nil, core.NewNotFoundError("team member")
}

// MemberForm returns the form a reviewer uses to score memberID at the given tier.
func (svc *Service) MemberForm(ctx context.Context, memberID string, tier Tier) (MemberForm, error) {
	p, _, err := svc.period(ctx)
	if err != nil {
		return MemberForm{}, err
	}
	member, records, err := svc.member(ctx, p, memberID)
	if err != nil {
		return MemberForm{}, err
	}
	form, err := svc.form(ctx, member)
	if err != nil {
		return MemberForm{}, err
	}

	prefill := make(map[string]Score)
	for _, c := range Flatten(form.Sections) {
		if s := records[c.ID].Prefill(tier); s.Valid {
			prefill[c.ID] = s
		}
	}
	return MemberForm{Form: form, Member: member, Tier: tier, Records: records, Prefill: prefill}, nil
}

// SubmitReview stores the scores given by reviewer to memberID and notifies the member by email.
func (svc *Service) SubmitReview(
	ctx context.Context,
	reviewer user.User,
	memberID string,
	tier Tier,
	scores map[string]Score,
) (Result, error) {
	p, _, err := svc.period(ctx)
	if err != nil {
		return Result{}, err
	}
	member, _, err := svc.member(ctx, p, memberID)
	if err != nil {
		return Result{}, err
	}
	form, err := svc.form(ctx, member)
	if err != nil {
		return Result{}, err
	}

	res, err := svc.submit(ctx, member, form, tier, scores)
	if err != nil {
		return Result{}, err
	}
	svc.notifyMember(member, reviewer, res)
	return res, nil
}

func (svc *Service) notifyMember(member, reviewer user.User, res Result) {
	if member.Email == "" {
		return
	}
	addr, err := mail.ParseAddress(member.Email)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("invalid email for member %s: %v", member.ID, err), err)
		return
	}
	addr.Name = member.DisplayName()

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      "Kết quả đánh giá",
		TemplateName: "evaluation_scored",
		TemplateData: map[string]interface{}{
			"MemberName":   member.DisplayName(),
			"ReviewerName": reviewer.DisplayName(),
			"ReviewerRole": reviewer.Role.Label(),
			"Year":         res.Period.Year,
			"Quarter":      res.Period.Quarter,
			"Total":        res.Total,
			"MaxTotal":     res.MaxTotal,
		},
	})
}

// Dashboard aggregates the evaluations matching f.
// The API's own figures are used only when it sends no per-member details.
func (svc *Service) Dashboard(ctx context.Context, f Filter) (Summary, error) {
	remote, err := svc.repo.GetDashboard(ctx, f)
	if err != nil {
		return Summary{}, errors.Wrap(err, "getting dashboard data")
	}
	if len(remote.Details) == 0 {
		if remote.TeamAverages == nil {
			remote.TeamAverages = make([]TeamAverage, 0)
		}
		remote.Details = make([]MemberTotal, 0)
		return remote, nil
	}

	sheets := make([]Sheet, 0, len(remote.Details))
	for _, d := range remote.Details {
		sheets = append(sheets, Sheet{
			UserID:  d.UserID,
			Name:    d.Name,
			TeamID:  d.TeamID,
			Year:    d.Year,
			Quarter: d.Quarter,
			Records: map[string]Record{TotalID: d.Total},
		})
	}
	return Aggregate(sheets, f), nil
}
