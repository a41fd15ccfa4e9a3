package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/shule/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (up, down, status, ...)")
	fmt.Println("  addcurator -email EMAIL -name FULL_NAME - create or update a curator account")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addCuratorCmd := flag.NewFlagSet("addcurator", flag.ExitOnError)
	addCuratorEmail := addCuratorCmd.String("email", "", "The curator's email. The password will be prompted next.")
	addCuratorName := addCuratorCmd.String("name", "", "The curator's full name.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addcurator":
		if err := addCuratorCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addCuratorEmail == "" || *addCuratorName == "" {
			addCuratorCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addCuratorCmd.Usage()
			return errHelp
		}
		return cli.addCurator(*addCuratorEmail, *addCuratorName, string(pwd))
	default:
		cli.printUsage()
		return errHelp
	}
}
