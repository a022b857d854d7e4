package echoapi

import (
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/danhgia/core/user"
)

var orderingParam = "ordering"

type orderingField struct {
	Field     string
	Ascending bool
}

// Ordering is read from a query param like `ordering=teamId,-name`.
type Ordering struct {
	Orderings []orderingField
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if _, ok := userSortKeys[field]; ok {
			ord.Orderings = append(ord.Orderings, orderingField{Field: field, Ascending: !descending})
		}
	}
}

var userSortKeys = map[string]func(user.User) string{
	"id":       func(u user.User) string { return u.ID },
	"username": func(u user.User) string { return u.Username },
	"name":     func(u user.User) string { return strings.ToLower(u.Name) },
	"role":     func(u user.User) string { return string(u.Role) },
	"teamId":   func(u user.User) string { return u.TeamID },
}

// SortUsers orders users in place; ties keep their original order.
func (ord *Ordering) SortUsers(users []user.User) {
	if len(ord.Orderings) == 0 {
		return
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, o := range ord.Orderings {
			key := userSortKeys[o.Field]
			a, b := key(users[i]), key(users[j])
			if a == b {
				continue
			}
			return (a < b) == o.Ascending
		}
		return false
	})
}
