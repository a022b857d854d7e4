package sqlxrepos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
)

func Test_sessionRow(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	tests := []struct {
		name string
		sess session.Session
	}{
		{
			name: "with email and expiry",
			sess: session.Session{
				ID:        "s1",
				Token:     "token",
				User:      user.User{ID: "7", Username: "lan", Name: "Lan", Role: user.RoleTeamLeader, TeamID: "MATH", Email: "lan@school.vn"},
				ExpiresAt: now.Add(time.Hour),
				CreatedAt: now,
			},
		},
		{
			name: "no email, no expiry",
			sess: session.Session{
				ID:        "s2",
				Token:     "token",
				User:      user.User{ID: "8", Username: "minh", Role: user.RoleStaff, TeamID: "VP"},
				CreatedAt: now,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := newSessionRow(tt.sess)
			assert.Equal(t, tt.sess.User.Email != "", row.Email.Valid)
			assert.Equal(t, !tt.sess.ExpiresAt.IsZero(), row.ExpiresAt.Valid)
			assert.Equal(t, tt.sess, row.session())
		})
	}
}
