package main

import (
	"context"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/policy"
	"github.com/trezcool/shule/core/user"
)

// addCurator updates or creates a curator account.
func (cli *commandLine) addCurator(email, name, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			Email:     email,
			FullName:  name,
			Role:      policy.RoleCurator,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err = usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	tmp := user.User{}
	if err = tmp.SetPassword(pwd); err != nil {
		return err
	}
	role := policy.RoleCurator
	_, err = cli.usrRepo.UpdateUser(ctx, usr.ID, user.Update{
		FullName:     &name,
		Role:         &role,
		PasswordHash: tmp.PasswordHash,
	})
	return err
}
