package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/danhgia/core/session"
	"github.com/trezcool/danhgia/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("no database configured")
)

type commandLine struct {
	db     *sql.DB // nil when sessions are not persisted
	auth   session.Authenticator
	usrSvc *user.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  importusers -username ADMIN -file FILE    - create the users listed in an .xlsx file")
	fmt.Println("  exportusers -username ADMIN -out FILE     - write all users to an .xlsx file")
	fmt.Println("  usertemplate -out FILE                    - write an empty users .xlsx file")
	fmt.Println("  resetpassword -username ADMIN -user USER  - reset USER's password")
	fmt.Println("  migrate COMMAND [ARGS...]                 - run a goose command against the sessions database")
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(label string) (string, error) {
	fmt.Printf("Enter %s:", label)
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importCmd := flag.NewFlagSet("importusers", flag.ContinueOnError)
	importUname := importCmd.String("username", "", "An admin's username. The password will be prompted next.")
	importFile := importCmd.String("file", "", "The .xlsx file to import.")

	exportCmd := flag.NewFlagSet("exportusers", flag.ContinueOnError)
	exportUname := exportCmd.String("username", "", "An admin's username. The password will be prompted next.")
	exportOut := exportCmd.String("out", "users.xlsx", "The .xlsx file to write.")

	templateCmd := flag.NewFlagSet("usertemplate", flag.ContinueOnError)
	templateOut := templateCmd.String("out", "users_template.xlsx", "The .xlsx file to write.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "An admin's username. The password will be prompted next.")
	resetPasswordTarget := resetPasswordCmd.String("user", "", "The username whose password is reset. The new password will be prompted next.")

	switch args[1] {
	case "importusers":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importUname == "" || *importFile == "" {
			importCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("password")
		if err != nil {
			return err
		}
		if pwd == "" {
			importCmd.Usage()
			return errHelp
		}
		return cli.importUsers(*importUname, pwd, *importFile)

	case "exportusers":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *exportUname == "" || *exportOut == "" {
			exportCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("password")
		if err != nil {
			return err
		}
		if pwd == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportUsers(*exportUname, pwd, *exportOut)

	case "usertemplate":
		if err := templateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *templateOut == "" {
			templateCmd.Usage()
			return errHelp
		}
		return cli.userTemplate(*templateOut)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" || *resetPasswordTarget == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword("password")
		if err != nil {
			return err
		}
		newPwd, err := promptPassword("new password")
		if err != nil {
			return err
		}
		if pwd == "" || newPwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd, *resetPasswordTarget, newPwd)

	case "migrate":
		if len(args) < 3 {
			fmt.Println("Usage: migrate up|up-by-one|up-to|down|down-to|redo|reset|status|version|create|fix [ARGS...]")
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}
