package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/Nanikworkforce/TET-Bloom/core/identity"
	"github.com/Nanikworkforce/TET-Bloom/core/notify"
	"github.com/Nanikworkforce/TET-Bloom/core/provision"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	nowFunc          = time.Now          // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrations need the postgres storage")
)

type commandLine struct {
	db           *sqlx.DB // nil with in-memory storage
	orchestrator *provision.Orchestrator
	provisioner  *identity.Provisioner
	dispatcher   *notify.Dispatcher
	out          io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL -role ROLE [-subject SUBJECT -grade GRADE] - provision a person and send the welcome email")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset a credential's password")
	fmt.Fprintln(cli.out, "  remind [-days N] - send reminders for observations taking place in N days")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserName := addUserCmd.String("name", "", "Full name.")
	addUserEmail := addUserCmd.String("email", "", "Email address, also used as username.")
	addUserRole := addUserCmd.String("role", "", "Teacher, Administrator or Super User.")
	addUserSubject := addUserCmd.String("subject", "", "Subject taught (teachers only).")
	addUserGrade := addUserCmd.String("grade", "", "Grade level (teachers only).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The username or email. The password will be prompted next.")

	remindCmd := flag.NewFlagSet("remind", flag.ContinueOnError)
	remindCmd.SetOutput(cli.out)
	remindDays := remindCmd.Int("days", 1, "Days before the observation.")

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserEmail == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserName, *addUserEmail, *addUserRole, *addUserSubject, *addUserGrade)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(ctx, *resetPasswordUname, string(pwd))

	case "remind":
		if err := remindCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *remindDays < 0 {
			remindCmd.Usage()
			return errHelp
		}
		return cli.remind(ctx, *remindDays)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}
