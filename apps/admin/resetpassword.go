package main

import "context"

func (cli *commandLine) resetPassword(ctx context.Context, uname, pwd string) error {
	return cli.provisioner.ResetPassword(ctx, uname, pwd)
}
