package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/activity"
	"github.com/trezcool/masomo-portal/core/chat"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/storage"
	"github.com/trezcool/masomo-portal/storage/kv/sqlstore"
	"github.com/trezcool/masomo-portal/storage/localstore"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp           = errors.New("help provided")
	errNoPassword     = errors.New("password is required")
	errPwdMismatch    = errors.New("passwords do not match")
	errNotSQLBackend  = errors.New("migrations only apply to the sqlite and postgres stores")
	errUnknownMigrate = errors.New("unknown migrate command, want one of up, down, status")
)

type commandLine struct {
	conf   *core.Config
	logger core.Logger
	out    io.Writer

	store      *localstore.Store
	usrSvc     *user.Service
	chatSvc    *chat.Service
	validate   *validator.Validate
	translator ut.Translator
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -name NAME -role ROLE [-email EMAIL] - create a user, the password is prompted next")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME - reset user's password")
	fmt.Fprintln(cli.out, "  seed - create the default accounts when there are no users yet")
	fmt.Fprintln(cli.out, "  migrate [up|down|status] - run the store migrations (sqlite and postgres only)")
	fmt.Fprintln(cli.out, "  unread -user ID - print the user's unread message count")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "adduser":
		addUserCmd := cli.newFlagSet("adduser")
		uname := addUserCmd.String("username", "", "The user's username.")
		name := addUserCmd.String("name", "", "The user's full name.")
		role := addUserCmd.String("role", user.RoleStudent, "One of admin, teacher, student.")
		email := addUserCmd.String("email", "", "The user's email (optional).")
		if err := cli.parse(addUserCmd, args[2:]); err != nil {
			return err
		}
		if *uname == "" || *name == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(true)
		if err != nil {
			return err
		}
		if err = cli.setup(ctx); err != nil {
			return err
		}
		return cli.addUser(ctx, user.NewUser{
			Username:        *uname,
			Name:            *name,
			Email:           *email,
			Role:            *role,
			Password:        pwd,
			PasswordConfirm: pwd,
		})

	case "resetpassword":
		resetPasswordCmd := cli.newFlagSet("resetpassword")
		uname := resetPasswordCmd.String("username", "", "The user's username. The password will be prompted next.")
		if err := cli.parse(resetPasswordCmd, args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(false)
		if err != nil {
			return err
		}
		if err = cli.setup(ctx); err != nil {
			return err
		}
		if err = cli.usrSvc.SetPassword(ctx, *uname, pwd); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "password of %q updated\n", *uname)
		return nil

	case "seed":
		if err := cli.setup(ctx); err != nil {
			return err
		}
		created, err := cli.usrSvc.Seed(ctx)
		if err != nil {
			return err
		}
		if len(created) == 0 {
			fmt.Fprintln(cli.out, "users already exist, nothing to seed")
			return nil
		}
		for _, usr := range created {
			fmt.Fprintf(cli.out, "created %s (%s)\n", usr.Username, usr.Role)
		}
		return nil

	case "migrate":
		command := "up"
		if len(args) > 2 {
			command = args[2]
		}
		return cli.migrate(ctx, command)

	case "unread":
		unreadCmd := cli.newFlagSet("unread")
		userID := unreadCmd.String("user", "", "The user's id.")
		if err := cli.parse(unreadCmd, args[2:]); err != nil {
			return err
		}
		if *userID == "" {
			unreadCmd.Usage()
			return errHelp
		}
		if err := cli.setup(ctx); err != nil {
			return err
		}
		count, err := cli.chatSvc.UnreadCount(ctx, *userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, count)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword(confirm bool) (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", errNoPassword
	}
	if confirm {
		fmt.Fprint(cli.out, "Confirm password:")
		again, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return "", err
		}
		if string(again) != string(pwd) {
			return "", errPwdMismatch
		}
	}
	return string(pwd), nil
}

// setup opens the configured store and builds the services, unless they were injected.
func (cli *commandLine) setup(ctx context.Context) error {
	if cli.usrSvc != nil {
		return nil
	}
	store, err := storage.Open(ctx, cli.conf.Store, cli.logger)
	if err != nil {
		return err
	}
	cli.store = store

	ids := core.NewUUIDGen()
	actSvc := activity.NewService(localstore.NewActivityRepository(store, ids), cli.conf.Tutor.DetailsLimit)
	cli.usrSvc = user.NewService(localstore.NewUserRepository(store, ids), cli.logger)
	cli.chatSvc = chat.NewService(localstore.NewChatRepository(store, ids, nil), cli.usrSvc, actSvc, cli.logger, cli.conf.Chat)
	cli.validate, cli.translator = core.NewValidator()
	user.InitValidators(cli.validate, cli.translator)
	return nil
}

func (cli *commandLine) close() error {
	if cli.store == nil {
		return nil
	}
	return cli.store.Close()
}

func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser) error {
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Translate(cli.translator)))
			}
			return core.NewValidationError(errors.New(strings.Join(msgs, "; ")))
		}
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s (%s) with id %s\n", usr.Username, usr.Role, usr.ID)
	return nil
}

func (cli *commandLine) migrate(ctx context.Context, command string) error {
	switch cli.conf.Store.Driver {
	case storage.DriverSQLite, storage.DriverPostgres:
	default:
		return errNotSQLBackend
	}

	db, err := sqlstore.Open(ctx, cli.conf.Store.Driver, cli.conf.Store.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "up":
		return db.Migrate(ctx, cli.logger)
	case "down":
		return db.MigrateDown(ctx, cli.logger)
	case "status":
		return db.MigrationStatus(ctx, cli.logger)
	default:
		return errUnknownMigrate
	}
}
