package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/danhgia/core"
	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
	xlsxsvc "github.com/trezcool/danhgia/services/spreadsheet"
)

// login returns a context carrying an admin's API token.
func (cli *commandLine) login(uname, pwd string) (context.Context, error) {
	creds := session.Credentials{Username: uname, Password: pwd}
	token, usr, err := cli.auth.Login(context.Background(), creds)
	if err != nil {
		return nil, err
	}
	if !usr.Role.Is(user.RoleAdmin) {
		return nil, session.ErrForbidden
	}
	return core.ContextWithToken(context.Background(), token), nil
}

func (cli *commandLine) importUsers(uname, pwd, path string) error {
	ctx, err := cli.login(uname, pwd)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	users, err := xlsxsvc.ReadUsers(f)
	if err != nil {
		return err
	}
	if err := cli.usrSvc.Import(ctx, users); err != nil {
		return err
	}
	fmt.Printf("%d users imported.\n", len(users))
	return nil
}

func (cli *commandLine) exportUsers(uname, pwd, path string) error {
	ctx, err := cli.login(uname, pwd)
	if err != nil {
		return err
	}

	users, err := cli.usrSvc.Query(ctx, user.QueryFilter{})
	if err != nil {
		return err
	}
	return writeFile(path, func(f *os.File) error { return xlsxsvc.WriteUsers(f, users) })
}

func (cli *commandLine) userTemplate(path string) error {
	return writeFile(path, func(f *os.File) error { return xlsxsvc.WriteTemplate(f) })
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}
