package sheetsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/evaluation"
	"github.com/trezcool/danhgia/core/settings"
	"github.com/trezcool/danhgia/core/user"
)

var (
	errInvalidCredentials = errors.New("Invalid credentials")
	errInvalidToken       = errors.New("Invalid or expired token")
	errPermissionDenied   = errors.New("Permission denied")
	errUserNotFound       = errors.New("User not found")
	errUsernameTaken      = errors.New("Username already exists")
)

type (
	mockUser struct {
		user.User
		passwordHash []byte
	}

	sheetKey struct {
		userID  string
		year    string
		quarter int
	}

	mockClaims struct {
		jwt.StandardClaims
		Username string `json:"username"`
		Role     string `json:"role"`
		TeamID   string `json:"teamId"`
	}
)

// Mock is an in-process stand-in for the evaluation API, used in development and tests.
// It answers with the same loosely typed data as the spreadsheet backend.
type Mock struct {
	mu        sync.Mutex
	secret    []byte
	tokenTTL  time.Duration
	nowFunc   func() time.Time // mockable
	users     []*mockUser
	templates map[user.EvalType][]map[string]interface{}
	config    map[string]interface{}
	sheets    map[sheetKey]map[string]evaluation.Record
	order     []sheetKey
}

var _ Caller = (*Mock)(nil)

// NewMock returns a Mock seeded with demo accounts, templates and config.
// Every demo account uses its username as password, e.g. admin/admin.
func NewMock(conf *core.Config) *Mock {
	m := &Mock{
		secret:   []byte(conf.SecretKey),
		tokenTTL: conf.Server.JWTExpirationDelta,
		nowFunc:  time.Now,
		sheets:   make(map[sheetKey]map[string]evaluation.Record),
		config: map[string]interface{}{
			settings.KeyActiveYear:    "2023-2024",
			settings.KeyActiveQuarter: "1",
			"Q1_LOCKED":               "false",
		},
		templates: map[user.EvalType][]map[string]interface{}{
			user.EvalTypeGV: {
				{"id": "c1", "section": "I. Teaching Quality", "criteria": "Punctuality", "description": "Arrives on time to classes", "maxScore": 10},
				{"id": "c2", "section": "I. Teaching Quality", "criteria": "Preparation", "description": "Lesson plans are well prepared", "maxScore": 20},
				{"id": "c3", "section": "II. Professionalism", "criteria": "Teamwork", "description": "Collaborates with peers", "maxScore": 10},
			},
			user.EvalTypeNV: {
				{"id": "n1", "section": "I. Work Quality", "criteria": "Task completion", "description": "15", "maxScore": ""},
				{"id": "n2", "section": "I. Work Quality", "criteria": "Accuracy", "description": "Few errors in records", "maxScore": "10"},
				{"id": "n3", "section": "II. Discipline", "criteria": "Attendance", "description": "Present during working hours", "maxScore": 10},
			},
		},
	}

	demo := []user.User{
		{ID: "1", Username: "admin", Name: "System Admin", Role: user.RoleAdmin, TeamID: "SYS"},
		{ID: "2", Username: "teacher", Name: "John Doe", Role: user.RoleTeacher, TeamID: "MATH"},
		{ID: "3", Username: "leader", Name: "Nguyễn Văn An", Role: user.RoleTeamLeader, TeamID: "MATH"},
		{ID: "4", Username: "staff", Name: "Trần Thị Bình", Role: user.RoleStaff, TeamID: "VP"},
		{ID: "5", Username: "principal", Name: "Lê Văn Cường", Role: user.RolePrincipal, TeamID: "BGH"},
		{ID: "6", Username: "dung", Name: "Phạm Thị Dung", Role: user.RoleTeacher, TeamID: "MATH", Email: "dung@example.edu.vn"},
	}
	for _, usr := range demo {
		// demo passwords: low cost keeps start up fast
		hash, _ := bcrypt.GenerateFromPassword([]byte(usr.Username), bcrypt.MinCost)
		m.users = append(m.users, &mockUser{User: usr, passwordHash: hash})
	}
	return m
}

// Call answers like the API would: errors stand for {success: false} responses.
func (m *Mock) Call(ctx context.Context, action string, payload interface{}, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return core.NewRemoteError(action, "encoding payload", err)
	}

	m.mu.Lock()
	data, err := m.dispatch(core.TokenFromContext(ctx), action, raw)
	m.mu.Unlock()

	if err != nil {
		msg := errors.Cause(err).Error()
		if isAuthFailure(msg) {
			return core.NewAuthError(msg)
		}
		return core.NewRemoteError(action, msg)
	}

	if out == nil || data == nil {
		return nil
	}
	body, err := json.Marshal(data)
	if err != nil {
		return core.NewRemoteError(action, "encoding data", err)
	}
	if err = json.Unmarshal(body, out); err != nil {
		return core.NewRemoteError(action, "invalid data", err)
	}
	return nil
}

func (m *Mock) dispatch(token, action string, raw json.RawMessage) (interface{}, error) {
	switch action {
	case ActionLogin:
		return m.login(raw)
	case ActionGetDashboardData:
		return m.dashboard(raw)
	}

	caller, err := m.authenticate(token)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionGetConfig:
		return m.config, nil
	case ActionGetEvaluationTemplate:
		return m.template(raw)
	case ActionSubmitEvaluation:
		return m.submit(caller, raw)
	case ActionGetTeamData:
		return m.teamData(caller, raw)
	}

	if !caller.Role.Is(user.RoleAdmin) {
		return nil, errPermissionDenied
	}
	switch action {
	case ActionUpdateConfig:
		return m.updateConfig(raw)
	case ActionGetUsers:
		return m.listUsers(), nil
	case ActionAddUser:
		return m.addUser(raw)
	case ActionUpdateUser:
		return m.updateUser(raw)
	case ActionDeleteUser:
		return m.deleteUser(raw)
	case ActionImportUsers:
		return m.importUsers(raw)
	default:
		return nil, errors.Errorf("Unknown action: %s", action)
	}
}

// IssueToken signs a token for usr expiring at exp.
func (m *Mock) IssueToken(usr user.User, exp time.Time) (string, error) {
	claims := mockClaims{
		StandardClaims: jwt.StandardClaims{
			Subject:   usr.ID,
			IssuedAt:  m.nowFunc().Unix(),
			ExpiresAt: exp.Unix(),
		},
		Username: usr.Username,
		Role:     string(usr.Role),
		TeamID:   usr.TeamID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Mock) authenticate(token string) (user.User, error) {
	claims := new(mockClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return user.User{}, errInvalidToken
	}
	usr := m.findUser(claims.Subject)
	if usr == nil {
		return user.User{}, errInvalidToken
	}
	return usr.User, nil
}

func (m *Mock) findUser(id string) *mockUser {
	for _, usr := range m.users {
		if usr.ID == id {
			return usr
		}
	}
	return nil
}

func (m *Mock) findUsername(uname string) *mockUser {
	for _, usr := range m.users {
		if strings.EqualFold(usr.Username, uname) {
			return usr
		}
	}
	return nil
}

func (m *Mock) login(raw json.RawMessage) (interface{}, error) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, errInvalidCredentials
	}
	usr := m.findUsername(core.CleanString(creds.Username))
	if usr == nil || bcrypt.CompareHashAndPassword(usr.passwordHash, []byte(creds.Password)) != nil {
		return nil, errInvalidCredentials
	}
	token, err := m.IssueToken(usr.User, m.nowFunc().Add(m.tokenTTL))
	if err != nil {
		return nil, errors.Wrap(err, "signing token")
	}
	return map[string]interface{}{"token": token, "user": usr.User}, nil
}

func (m *Mock) template(raw json.RawMessage) (interface{}, error) {
	var p struct {
		Type user.EvalType `json:"type"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	rows, ok := m.templates[p.Type]
	if !ok {
		return []interface{}{}, nil
	}
	return rows, nil
}

func (m *Mock) updateConfig(raw json.RawMessage) (interface{}, error) {
	var u settings.Update
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	u.ActiveYear = core.CleanString(u.ActiveYear)
	if u.ActiveYear == "" || u.ActiveQuarter < 1 || u.ActiveQuarter > settings.Quarters {
		return nil, errors.New("Invalid config")
	}
	for _, q := range u.LockedQuarters {
		if q < 1 || q > settings.Quarters {
			return nil, errors.Errorf("Invalid quarter: %d", q)
		}
	}

	s := u.Settings()
	m.config[settings.KeyActiveYear] = s.ActiveYear
	m.config[settings.KeyActiveQuarter] = strconv.Itoa(s.ActiveQuarter)
	for q := 1; q <= settings.Quarters; q++ {
		m.config[settings.LockedKey(q)] = strconv.FormatBool(s.IsLocked(q))
	}
	return map[string]string{"message": "Config updated"}, nil
}

func (m *Mock) listUsers() []user.User {
	users := make([]user.User, 0, len(m.users))
	for _, usr := range m.users {
		users = append(users, usr.User)
	}
	return users
}

func (m *Mock) createUser(nu user.NewUser) error {
	if m.findUsername(nu.Username) != nil {
		return errUsernameTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	m.users = append(m.users, &mockUser{
		User: user.User{
			ID:       uuid.New().String(),
			Username: nu.Username,
			Name:     nu.Name,
			Role:     nu.Role,
			TeamID:   nu.TeamID,
			Email:    nu.Email,
		},
		passwordHash: hash,
	})
	return nil
}

func (m *Mock) addUser(raw json.RawMessage) (interface{}, error) {
	var nu user.NewUser
	if err := json.Unmarshal(raw, &nu); err != nil {
		return nil, err
	}
	if err := m.createUser(nu); err != nil {
		return nil, err
	}
	return map[string]string{"message": "User added"}, nil
}

func (m *Mock) updateUser(raw json.RawMessage) (interface{}, error) {
	var uu user.UpdateUser
	if err := json.Unmarshal(raw, &uu); err != nil {
		return nil, err
	}
	usr := m.findUser(uu.ID)
	if usr == nil {
		return nil, errUserNotFound
	}
	if other := m.findUsername(uu.Username); other != nil && other != usr {
		return nil, errUsernameTaken
	}
	usr.Username, usr.Name, usr.Role, usr.TeamID, usr.Email = uu.Username, uu.Name, uu.Role, uu.TeamID, uu.Email
	if uu.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(uu.Password), bcrypt.MinCost)
		if err != nil {
			return nil, err
		}
		usr.passwordHash = hash
	}
	return map[string]string{"message": "User updated"}, nil
}

func (m *Mock) deleteUser(raw json.RawMessage) (interface{}, error) {
	var p struct {
		ID core.FlexString `json:"id"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	for i, usr := range m.users {
		if usr.ID == p.ID.String() {
			m.users = append(m.users[:i], m.users[i+1:]...)
			return map[string]string{"message": "User deleted"}, nil
		}
	}
	return nil, errUserNotFound
}

// importUsers adds all users or none.
func (m *Mock) importUsers(raw json.RawMessage) (interface{}, error) {
	var p struct {
		Users []user.NewUser `json:"users"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(p.Users))
	for _, nu := range p.Users {
		key := strings.ToLower(nu.Username)
		if seen[key] || m.findUsername(nu.Username) != nil {
			return nil, errors.Wrap(errUsernameTaken, nu.Username)
		}
		seen[key] = true
	}
	for _, nu := range p.Users {
		if err := m.createUser(nu); err != nil {
			return nil, err
		}
	}
	return map[string]interface{}{"message": "Users imported", "count": len(p.Users)}, nil
}

func (m *Mock) sheet(key sheetKey) map[string]evaluation.Record {
	records, ok := m.sheets[key]
	if !ok {
		records = make(map[string]evaluation.Record)
		m.sheets[key] = records
		m.order = append(m.order, key)
	}
	return records
}

func (m *Mock) submit(caller user.User, raw json.RawMessage) (interface{}, error) {
	var p struct {
		UserID  core.FlexString `json:"userId"`
		Year    core.FlexString `json:"year"`
		Quarter core.FlexString `json:"quarter"`
		Scores  []struct {
			CriteriaID core.FlexString  `json:"criteriaId"`
			Score      evaluation.Score `json:"score"`
			Type       evaluation.Tier  `json:"type"`
		} `json:"scores"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	q, _ := p.Quarter.Float()
	key := sheetKey{userID: p.UserID.String(), year: p.Year.String(), quarter: int(q)}
	if m.findUser(key.userID) == nil {
		return nil, errUserNotFound
	}

	for _, s := range p.Scores {
		if !s.Type.Valid() {
			return nil, errors.Errorf("Invalid score type: %s", s.Type)
		}
		if !m.maySubmit(caller, key.userID, s.Type) {
			return nil, errPermissionDenied
		}
	}
	if m.isLocked(key) {
		return nil, errors.Errorf("Quarter %d is locked", key.quarter)
	}

	records := m.sheet(key)
	for _, s := range p.Scores {
		id := s.CriteriaID.String()
		records[id] = records[id].Set(s.Type, s.Score)
	}
	return map[string]string{"message": "Evaluation submitted"}, nil
}

func (m *Mock) maySubmit(caller user.User, memberID string, tier evaluation.Tier) bool {
	switch tier {
	case evaluation.TierSelf:
		return caller.ID == memberID
	case evaluation.TierTeamLeader:
		return m.isVisibleMember(caller, memberID)
	default:
		return caller.Role.Is(user.RolePrincipal)
	}
}

// isLocked only applies locks to the active year.
func (m *Mock) isLocked(key sheetKey) bool {
	if fmt.Sprint(m.config[settings.KeyActiveYear]) != key.year {
		return false
	}
	cfg := make(map[string]core.FlexString, len(m.config))
	for k, v := range m.config {
		cfg[k] = core.FlexString(fmt.Sprint(v))
	}
	s, err := settings.FromMap(cfg)
	return err == nil && s.IsLocked(key.quarter)
}

// isVisibleMember reports whether caller reviews memberID:
// team leaders see their team, principals see every evaluated member.
func (m *Mock) isVisibleMember(caller user.User, memberID string) bool {
	member := m.findUser(memberID)
	if member == nil || member.ID == caller.ID || member.Role.Is(user.RoleAdmin) {
		return false
	}
	switch {
	case caller.Role.Is(user.RolePrincipal):
		return true
	case caller.Role.Is(user.RoleTeamLeader):
		return member.TeamID == caller.TeamID
	default:
		return false
	}
}

func (m *Mock) teamData(caller user.User, raw json.RawMessage) (interface{}, error) {
	if !caller.HasRole(user.ReviewerRoles...) {
		return nil, errPermissionDenied
	}
	var p struct {
		Year    core.FlexString `json:"year"`
		Quarter core.FlexString `json:"quarter"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	q, _ := p.Quarter.Float()

	// blank cells are sent as ""
	cell := func(s evaluation.Score) interface{} {
		if !s.Valid {
			return ""
		}
		return s.Value
	}

	members := make([]user.User, 0)
	evals := make(map[string]map[string]interface{})
	for _, usr := range m.users {
		if !m.isVisibleMember(caller, usr.ID) {
			continue
		}
		members = append(members, usr.User)
		records, ok := m.sheets[sheetKey{userID: usr.ID, year: p.Year.String(), quarter: int(q)}]
		if !ok {
			continue
		}
		rows := make(map[string]interface{}, len(records))
		for id, r := range records {
			rows[id] = map[string]interface{}{
				"selfScore":      cell(r.Self),
				"tlScore":        cell(r.TeamLeader),
				"principalScore": cell(r.Principal),
			}
		}
		evals[usr.ID] = rows
	}
	return map[string]interface{}{"teamMembers": members, "evaluations": evals}, nil
}

// dashboard aggregates every evaluated member: the active period always counts, even before any submission.
func (m *Mock) dashboard(raw json.RawMessage) (interface{}, error) {
	var f evaluation.Filter
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, err
		}
	}

	activeYear := fmt.Sprint(m.config[settings.KeyActiveYear])
	activeQuarter := 1
	if q, ok := core.FlexString(fmt.Sprint(m.config[settings.KeyActiveQuarter])).Float(); ok {
		activeQuarter = int(q)
	}

	var sheets []evaluation.Sheet
	for _, usr := range m.users {
		if usr.Role.Is(user.RoleAdmin) {
			continue
		}
		active := sheetKey{userID: usr.ID, year: activeYear, quarter: activeQuarter}
		keys := []sheetKey{active}
		for _, key := range m.order {
			if key.userID == usr.ID && key != active {
				keys = append(keys, key)
			}
		}
		for _, key := range keys {
			sheets = append(sheets, evaluation.Sheet{
				UserID:  usr.ID,
				Name:    usr.DisplayName(),
				TeamID:  usr.TeamID,
				Year:    key.year,
				Quarter: key.quarter,
				Records: m.sheets[key],
			})
		}
	}
	return evaluation.Aggregate(sheets, f), nil
}
