// Package session tracks who is logged in and what they may access.
package session

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/user"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrUnauthenticated = errors.New("user not authenticated")
	ErrForbidden       = errors.New("permission denied")
	ErrMalformedToken  = errors.New("malformed token")
)

// State of a session. Expired is only observed while restoring and is never stored.
type State int

const (
	Anonymous State = iota
	Authenticated
	Expired
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	default:
		return "anonymous"
	}
}

type Session struct {
	ID        string    `json:"-"`
	Token     string    `json:"-"`
	User      user.User `json:"user"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"` // zero if the token never expires
	CreatedAt time.Time `json:"-"`
}

func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// HasRole reports whether the session's user holds one of roles, ignoring case.
func (s Session) HasRole(roles ...user.Role) bool {
	return s.IsAuthenticated() && s.User.HasRole(roles...)
}

// Authorize tells anonymous sessions apart from sessions lacking the roles.
// No roles means any authenticated session is allowed.
func (s Session) Authorize(roles ...user.Role) error {
	if !s.IsAuthenticated() {
		return ErrUnauthenticated
	}
	if len(roles) > 0 && !s.HasRole(roles...) {
		return ErrForbidden
	}
	return nil
}

type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Username = core.CleanString(c.Username, true /* lower */)
	return validate.Struct(c)
}

type (
	// Store persists sessions by ID.
	Store interface {
		Save(ctx context.Context, sess Session) error
		// Get returns ErrNotFound for unknown IDs.
		Get(ctx context.Context, id string) (Session, error)
		Delete(ctx context.Context, id string) error
	}

	// Authenticator exchanges credentials for a bearer token.
	Authenticator interface {
		Login(ctx context.Context, creds Credentials) (string, user.User, error)
	}
)

type Gate struct {
	store   Store
	auth    Authenticator
	nowFunc func() time.Time // mockable
}

func NewGate(store Store, auth Authenticator) *Gate {
	return &Gate{store: store, auth: auth, nowFunc: time.Now}
}

// Login authenticates creds and stores the resulting session under a new ID.
func (g *Gate) Login(ctx context.Context, creds Credentials) (Session, error) {
	token, usr, err := g.auth.Login(ctx, creds)
	if err != nil {
		return Session{}, err
	}
	exp, err := TokenExpiry(token)
	if err != nil {
		return Session{}, core.NewAuthError(err.Error())
	}

	sess := Session{
		ID:        uuid.New().String(),
		Token:     token,
		User:      usr,
		ExpiresAt: exp,
		CreatedAt: g.nowFunc().UTC(),
	}
	if err = g.store.Save(ctx, sess); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	return sess, nil
}

// Logout forgets the session. Unknown IDs are ignored.
func (g *Gate) Logout(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := g.store.Delete(ctx, id); err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "deleting session")
	}
	return nil
}

// Restore loads the session stored under id.
// Unknown IDs give an anonymous session; expired ones are purged first.
func (g *Gate) Restore(ctx context.Context, id string) (Session, State, error) {
	if id == "" {
		return Session{}, Anonymous, nil
	}
	sess, err := g.store.Get(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Session{}, Anonymous, nil
		}
		return Session{}, Anonymous, errors.Wrap(err, "getting session")
	}

	exp, err := TokenExpiry(sess.Token)
	if err != nil || (!exp.IsZero() && exp.Before(g.nowFunc())) {
		if err = g.store.Delete(ctx, id); err != nil && errors.Cause(err) != ErrNotFound {
			return Session{}, Expired, errors.Wrap(err, "purging expired session")
		}
		return Session{}, Expired, nil
	}
	return sess, Authenticated, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The zero time means the token has no exp claim.
func TokenExpiry(token string) (time.Time, error) {
	claims := new(jwt.StandardClaims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}, ErrMalformedToken
	}
	if claims.ExpiresAt == 0 {
		return time.Time{}, nil
	}
	return time.Unix(claims.ExpiresAt, 0), nil
}
