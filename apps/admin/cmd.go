package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/auth"
	"github.com/autograder/repository/storage/database"
)

var (
	gooseRunFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	openDB func() (*sql.DB, error)
	out    io.Writer
}

func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	return root.Execute()
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Autograder repository administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.AddCommand(cli.migrateCmd(), cli.tokenCmd(), cli.versionCmd())
	return root
}

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command against the embedded migrations",
		Long: `Run a goose command against the embedded migrations.
Commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset, status, version, fix.`,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			db, err := cli.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return gooseRunFunc(db, args[0], args[1:]...)
		},
	}
}

func (cli *commandLine) tokenCmd() *cobra.Command {
	var (
		userID      string
		email       string
		ttl         time.Duration
		isSuperuser bool
		isTeacher   bool
		isStudent   bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with CORE_PRIVATE_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user-id: %w", err)
			}
			if ttl <= 0 {
				return errors.New("--ttl must be positive")
			}
			keys, err := auth.LoadKeys(cli.conf.Auth.PrivateKey, cli.conf.Auth.PublicKey)
			if err != nil {
				return err
			}
			token, err := auth.NewSigner(keys).Sign(auth.Principal{
				UserID:      id,
				IsSuperuser: isSuperuser,
				IsTeacher:   isTeacher,
				IsStudent:   isStudent,
				Email:       email,
				ExpiresAt:   time.Now().Add(ttl),
			})
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&userID, "user-id", "", "subject of the token (UUID)")
	flags.StringVar(&email, "email", "", "email claim")
	flags.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	flags.BoolVar(&isSuperuser, "superuser", false, "grant superuser rights")
	flags.BoolVar(&isTeacher, "teacher", false, "mark as teacher")
	flags.BoolVar(&isStudent, "student", false, "mark as student")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func (cli *commandLine) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s (%s)\n", cli.conf.Build, cli.conf.Env)
		},
	}
}
