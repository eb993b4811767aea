package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/academia/core/roster"
	"github.com/trezcool/academia/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sql.DB
	usrRepo   user.Repository
	rosterSvc roster.ServiceInterface
	validate  *validator.Validate
	scanRows  int
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-name NAME] [-admin|-faculty] - create or update a user")
	_, _ = fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	_, _ = fmt.Fprintln(cli.out, "  loadroster -file FILE -branch BRANCH -year YEAR -semester SEMESTER [-section SECTION] - load a class list")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(usage func()) (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every role.")
	addUserFaculty := addUserCmd.Bool("faculty", false, "Grant the faculty role.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordCmd.SetOutput(cli.out)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	loadRosterCmd := flag.NewFlagSet("loadroster", flag.ContinueOnError)
	loadRosterCmd.SetOutput(cli.out)
	loadRosterFile := loadRosterCmd.String("file", "", "The class list spreadsheet (.xlsx or .csv) with roll number and name columns.")
	loadRosterBranch := loadRosterCmd.String("branch", "", "The class branch.")
	loadRosterYear := loadRosterCmd.Int("year", 0, "The class year.")
	loadRosterSemester := loadRosterCmd.Int("semester", 0, "The class semester.")
	loadRosterSection := loadRosterCmd.String("section", "", "The class section.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserEmail == "" || (*addUserAdmin && *addUserFaculty) {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(addUserCmd.Usage)
		if err != nil {
			return err
		}
		var roles []string
		switch {
		case *addUserAdmin:
			roles = user.AllRoles
		case *addUserFaculty:
			roles = []string{user.RoleFaculty}
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, pwd, roles)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(resetPasswordCmd.Usage)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "loadroster":
		if err := loadRosterCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loadRosterFile == "" {
			loadRosterCmd.Usage()
			return errHelp
		}
		class := roster.Filter{
			Branch:   *loadRosterBranch,
			Year:     *loadRosterYear,
			Semester: *loadRosterSemester,
			Section:  *loadRosterSection,
		}
		return cli.loadRoster(*loadRosterFile, class)

	default:
		cli.printUsage()
		return errHelp
	}
}
