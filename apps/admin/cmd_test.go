package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
	xlsxsvc "github.com/trezcool/danhgia/services/spreadsheet"
	testutil "github.com/trezcool/danhgia/tests"
)

func setup(t *testing.T) *commandLine {
	conf := testutil.NewConfig()
	validate, translator := testutil.NewValidator()
	api, _ := testutil.NewMockAPI(conf, validate)

	return &commandLine{
		auth:   api,
		usrSvc: user.NewService(api, validate, translator),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

// passwords makes readPasswordFunc return pwds in turn, then empty passwords.
func passwords(pwds ...string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if len(pwds) == 0 {
			return nil, nil
		}
		pwd := pwds[0]
		pwds = pwds[1:]
		return []byte(pwd), nil
	}
}

func checkErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		if errors.Cause(err) != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_help(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "importusers: no args", args: []string{"importusers"}, wantErr: errHelp},
		{name: "importusers: no file", args: []string{"importusers", "-username", "admin"}, wantErr: errHelp},
		{name: "importusers: no password", args: []string{"importusers", "-username", "admin", "-file", "users.xlsx"}, wantErr: errHelp},
		{name: "exportusers: no args", args: []string{"exportusers"}, wantErr: errHelp},
		{name: "exportusers: no password", args: []string{"exportusers", "-username", "admin"}, wantErr: errHelp},
		{name: "resetpassword: no target", args: []string{"resetpassword", "-username", "admin"}, wantErr: errHelp},
		{name: "resetpassword: no password", args: []string{"resetpassword", "-username", "admin", "-user", "teacher"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		passwords()

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	err := cli.run([]string{"admin", "migrate", "up"})
	assert.Equal(t, errNoDatabase, err)

	cli.db = new(sql.DB)
	gooseRunFunc = func(command string, db *sql.DB, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_sessions_index", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkErr(t, tt, cli.run(args))
		})
	}
}

func Test_commandLine_importUsers(t *testing.T) {
	cli := setup(t)
	dir := t.TempDir()

	file := filepath.Join(dir, "users.xlsx")
	require.NoError(t, cli.run([]string{"admin", "usertemplate", "-out", file}))

	tests := []cliTest{
		{name: "wrong password", args: []string{"importusers", "-username", "admin", "-file", file}, extra: "nope"},
		{name: "not an admin", args: []string{"importusers", "-username", "teacher", "-file", file}, extra: "teacher", wantErr: session.ErrForbidden},
		{name: "missing file", args: []string{"importusers", "-username", "admin", "-file", filepath.Join(dir, "lol.xlsx")}, extra: "admin"},
		{name: "imported", args: []string{"importusers", "-username", "admin", "-file", file}, extra: "admin"},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		passwords(tt.extra.(string))

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch tt.name {
			case "wrong password":
				var authErr *core.AuthError
				assert.True(t, errors.As(err, &authErr), "err = %v", err)
			case "missing file":
				assert.True(t, errors.Is(err, fs.ErrNotExist), "err = %v", err)
			default:
				checkErr(t, tt, err)
			}
		})
	}

	ctx := adminContext(t, cli)
	users, err := cli.usrSvc.Query(ctx, user.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 9)
}

func Test_commandLine_exportUsers(t *testing.T) {
	cli := setup(t)
	out := filepath.Join(t.TempDir(), "users.xlsx")

	passwords("admin")
	require.NoError(t, cli.run([]string{"admin", "exportusers", "-username", "admin", "-out", out}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	users, err := xlsxsvc.ReadUsers(f)
	require.NoError(t, err)
	require.Len(t, users, 6)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, "dung@example.edu.vn", users[5].Email)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "user not found", args: []string{"resetpassword", "-username", "admin", "-user", "lol"}, extra: []string{"admin", "Xk9#pq2!"}},
		{name: "weak password", args: []string{"resetpassword", "-username", "admin", "-user", "teacher"}, extra: []string{"admin", "abc"}},
		{name: "reset", args: []string{"resetpassword", "-username", "admin", "-user", "Teacher"}, extra: []string{"admin", "Xk9#pq2!"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		passwords(tt.extra.([]string)...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch tt.name {
			case "user not found":
				var nfErr *core.NotFoundError
				assert.True(t, errors.As(err, &nfErr), "err = %v", err)
			case "weak password":
				var vErr *core.ValidationError
				require.True(t, errors.As(err, &vErr), "err = %v", err)
				assert.Equal(t, "password", vErr.Fields[0].Field)
			default:
				require.NoError(t, err)
			}
		})
	}

	_, _, err := cli.auth.Login(context.Background(), session.Credentials{Username: "teacher", Password: "teacher"})
	assert.Error(t, err, "old password rejected")
	_, usr, err := cli.auth.Login(context.Background(), session.Credentials{Username: "teacher", Password: "Xk9#pq2!"})
	require.NoError(t, err)
	assert.Equal(t, "2", usr.ID)
}

func adminContext(t *testing.T, cli *commandLine) context.Context {
	ctx, err := cli.login("admin", "admin")
	require.NoError(t, err)
	return ctx
}
