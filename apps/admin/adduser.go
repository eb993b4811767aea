package main

import (
	"context"
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err != nil && err != user.ErrNotFound {
		return err
	}
	exists := err == nil

	if err = cli.usrRepo.CheckUsernameUniqueness(ctx, uname, email, usr); err != nil {
		return err
	}

	now := time.Now().UTC()
	usr.Username = uname
	usr.Email = email
	if name != "" || !exists {
		usr.Name = core.CleanString(name)
	}
	if roles != nil {
		usr.Roles = roles
	}
	usr.UpdatedAt = now
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		return err
	}
	usr.CreatedAt = now
	_, err = cli.usrRepo.CreateUser(ctx, usr)
	return err
}
