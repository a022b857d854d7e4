package main

import (
	"github.com/trezcool/danhgia/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd, target, newPwd string) error {
	ctx, err := cli.login(uname, pwd)
	if err != nil {
		return err
	}
	usr, err := cli.usrSvc.GetByUsername(ctx, target)
	if err != nil {
		return err
	}
	return cli.usrSvc.Update(ctx, user.UpdateUser{
		ID:       usr.ID,
		Username: usr.Username,
		Password: newPwd,
		Name:     usr.Name,
		Role:     usr.Role,
		TeamID:   usr.TeamID,
		Email:    usr.Email,
	})
}
