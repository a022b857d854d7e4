// Package testutil holds the fixtures shared by package tests.
package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
	logsvc "github.com/trezcool/danhgia/services/logger"
	sheetsvc "github.com/trezcool/danhgia/services/sheets"
)

// NewConfig returns a test config served by the mock API.
func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Danh Gia",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			Host:               "localhost",
			Port:               "8000",
			SessionTTL:         time.Hour,
			JWTExpirationDelta: time.Hour,
			ShutdownTimeout:    time.Second,
		},
		Remote: core.RemoteConfig{URL: "MOCK_URL", Timeout: time.Second},
	}
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// NewMockAPI returns an API backed by a freshly seeded mock.
func NewMockAPI(conf *core.Config, validate *validator.Validate) (*sheetsvc.API, *sheetsvc.Mock) {
	mock := sheetsvc.NewMock(conf)
	return sheetsvc.NewAPI(mock, validate), mock
}

// Login returns a context carrying the token of the mock account uname (password = username).
func Login(t *testing.T, auth session.Authenticator, uname string) (context.Context, user.User) {
	token, usr, err := auth.Login(context.Background(), session.Credentials{Username: uname, Password: uname})
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", uname, err)
	}
	return core.ContextWithToken(context.Background(), token), usr
}
