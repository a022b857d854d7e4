package user

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/danhgia/core"
)

// Role is one of the closed set of staff roles known to the evaluation API.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RolePrincipal  Role = "Principal"
	RoleTeamLeader Role = "TeamLeader"
	RoleTeacher    Role = "Teacher"
	RoleStaff      Role = "Staff"
)

// vpTeamID is the team code of the vice-principal office, evaluated with the NV template.
const vpTeamID = "VP"

var (
	AllRoles = []Role{RoleAdmin, RolePrincipal, RoleTeamLeader, RoleTeacher, RoleStaff}

	// EvaluatedRoles fill in their own evaluation forms.
	EvaluatedRoles = []Role{RoleTeacher, RoleStaff, RoleTeamLeader, RolePrincipal}

	// ReviewerRoles score the members of their team.
	ReviewerRoles = []Role{RoleTeamLeader, RolePrincipal}

	roleLabels = map[Role]string{
		RoleAdmin:      "Quản trị viên",
		RolePrincipal:  "Hiệu trưởng",
		RoleTeamLeader: "Tổ trưởng",
		RoleTeacher:    "Giáo viên",
		RoleStaff:      "Nhân viên",
	}
)

// ParseRole matches s against the known roles, ignoring case and surrounding whitespace.
func ParseRole(s string) (Role, bool) {
	s = core.CleanString(s)
	for _, r := range AllRoles {
		if strings.EqualFold(string(r), s) {
			return r, true
		}
	}
	return Role(s), false
}

// Is compares roles case-insensitively.
func (r Role) Is(other Role) bool {
	return strings.EqualFold(string(r), string(other))
}

// Label returns the role's display name.
func (r Role) Label() string {
	if role, ok := ParseRole(string(r)); ok {
		return roleLabels[role]
	}
	return string(r)
}

// EvalType selects the evaluation template: GV (teaching staff) or NV (non-teaching staff).
type EvalType string

const (
	EvalTypeGV EvalType = "GV"
	EvalTypeNV EvalType = "NV"
)

func (t EvalType) Valid() bool {
	return t == EvalTypeGV || t == EvalTypeNV
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	TeamID   string `json:"teamId"`
	Email    string `json:"email,omitempty"`
}

// DisplayName is the name shown in lists, falling back to the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// HasRole reports whether u holds any of roles, ignoring case.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role.Is(r) {
			return true
		}
	}
	return false
}

// EvalTypeFor decides which template applies to usr. Team codes are exact keys: "vp" is not the VP team.
func EvalTypeFor(usr User) EvalType {
	if usr.Role.Is(RoleStaff) || usr.TeamID == vpTeamID {
		return EvalTypeNV
	}
	return EvalTypeGV
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,alphanum_"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Role     Role   `json:"role" validate:"required,role"`
	TeamID   string `json:"teamId" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`

	// Row is the spreadsheet row the user was read from, 0 when not imported from a file.
	Row int `json:"-"`
}

func (nu *NewUser) Clean() {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Name = core.CleanString(nu.Name)
	nu.TeamID = core.CleanString(nu.TeamID)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if role, ok := ParseRole(string(nu.Role)); ok {
		nu.Role = role
	}
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// An empty Password keeps the current one.
type UpdateUser struct {
	ID       string `json:"id" validate:"required"`
	Username string `json:"username" validate:"required,min=3,alphanum_"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name" validate:"required"`
	Role     Role   `json:"role" validate:"required,role"`
	TeamID   string `json:"teamId" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate) error {
	uu.ID = core.CleanString(uu.ID)
	uu.Username = core.CleanString(uu.Username, true /* lower */)
	uu.Name = core.CleanString(uu.Name)
	uu.TeamID = core.CleanString(uu.TeamID)
	uu.Email = core.CleanString(uu.Email, true /* lower */)
	if role, ok := ParseRole(string(uu.Role)); ok {
		uu.Role = role
	}
	return validate.Struct(uu)
}

// QueryFilter narrows a user list. Search does a case-insensitive match on name or username.
type QueryFilter struct {
	Search string `query:"search"`
	Role   string `query:"role"`
	TeamID string `query:"team"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search, true /* lower */)
	f.Role = core.CleanString(f.Role)
	f.TeamID = core.CleanString(f.TeamID)
}

func (f QueryFilter) Match(usr User) bool {
	if f.Search != "" &&
		!strings.Contains(strings.ToLower(usr.Name), f.Search) &&
		!strings.Contains(strings.ToLower(usr.Username), f.Search) {
		return false
	}
	if f.Role != "" && !usr.Role.Is(Role(f.Role)) {
		return false
	}
	if f.TeamID != "" && !strings.EqualFold(usr.TeamID, f.TeamID) {
		return false
	}
	return true
}
