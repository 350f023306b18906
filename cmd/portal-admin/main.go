package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sevaportal/portal-api/internal/models"
	"github.com/sevaportal/portal-api/internal/repository"
	"github.com/sevaportal/portal-api/internal/service"
	"github.com/sevaportal/portal-api/pkg/config"
	"github.com/sevaportal/portal-api/pkg/database"
	"github.com/sevaportal/portal-api/pkg/logger"
)

// App holds what every subcommand needs.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	ctx    context.Context
}

var app *App

func main() {
	rootCmd := &cobra.Command{
		Use:   "portal-admin",
		Short: "Operator tasks for the volunteer portal",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.logger != nil {
				_ = app.logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(addUserCmd())
	rootCmd.AddCommand(addStudentCmd())
	rootCmd.AddCommand(routesCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func initApp(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	app = &App{cfg: cfg, logger: logr, ctx: ctx}
	return nil
}

func openDB() (*sqlx.DB, error) {
	db, err := database.NewPostgres(app.ctx, app.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(db.DB, app.logger)
		},
	}
}

func addUserCmd() *cobra.Command {
	var (
		email    string
		name     string
		role     string
		password string
		projects []string
	)
	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Create a portal account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed := models.ParseRole(role)
			if !parsed.Valid() {
				return fmt.Errorf("unknown role %q", role)
			}
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			hash, err := service.HashPassword(password)
			if err != nil {
				return err
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			user := &models.User{
				Email:        email,
				PasswordHash: hash,
				FullName:     name,
				Role:         parsed,
				ProjectKeys:  projects,
				Active:       true,
			}
			if err := repository.NewUserRepository(db).Create(app.ctx, user); err != nil {
				return err
			}
			app.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
			fmt.Fprintln(cmd.OutOrStdout(), user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&name, "name", "", "Full name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleVolunteer), "One of student, volunteer, exe, secy, admin")
	cmd.Flags().StringVar(&password, "password", "", "Initial password")
	cmd.Flags().StringSliceVar(&projects, "project", nil, "Project key the account may act on (repeatable)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func addStudentCmd() *cobra.Command {
	var student models.Student
	cmd := &cobra.Command{
		Use:   "add-student",
		Short: "Enroll a student in a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			student.Email = strings.ToLower(strings.TrimSpace(student.Email))
			v := validator.New()
			if err := v.Var(student.Grade, "min=1,max=12"); err != nil {
				return fmt.Errorf("grade must be between 1 and 12")
			}
			if err := v.Var(student.Email, "required,email"); err != nil {
				return fmt.Errorf("invalid email %q", student.Email)
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.NewStudentRepository(db).Create(app.ctx, &student); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), student.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&student.Name, "name", "", "Student name")
	cmd.Flags().StringVar(&student.Email, "email", "", "Student email")
	cmd.Flags().IntVar(&student.Grade, "grade", 0, "Grade (1-12)")
	cmd.Flags().StringVar(&student.ProjectKey, "project", "", "Project key")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("grade")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the client route table the access gate enforces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := service.AccessPaths{
				Login:        app.cfg.Access.LoginPath,
				StudentLogin: app.cfg.Access.StudentLoginPath,
				Unauthorized: app.cfg.Access.UnauthorizedPath,
			}
			table := service.NewRouteTable(service.DefaultRoutePolicies(), paths)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PATH\tMIN ROLE\tALLOWED\tLOGIN")
			for _, p := range table.Policies() {
				allowed := make([]string, len(p.AllowedRoles))
				for i, r := range p.AllowedRoles {
					allowed[i] = string(r)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Path, orDash(string(p.MinRole)), orDash(strings.Join(allowed, ",")), p.UnauthRedirect)
			}
			return w.Flush()
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
