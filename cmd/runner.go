package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/repositories"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/services"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	workflow   services.Workflow
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Workflow   services.Workflow
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		workflow:   opts.Workflow,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, authCommand, rewriteCommand, extractCommand, pointsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDB returns the runner's database handle, opening and migrating the
// configured database on first use.
func (r *Runner) openDB() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// engineOptions maps the loaded config onto the engine's policy knobs.
func (r *Runner) engineOptions() tasks.Options {
	return tasks.Options{
		RewriteCost:        r.config.Points.RewriteCost,
		DailyAllowance:     r.config.Points.DailyAllowance,
		SignInBonus:        r.config.Points.SignInBonus,
		MinOutputLength:    r.config.Workflow.MinOutputLength,
		RateLimit:          r.config.Workflow.RateLimit,
		ShowOnDebitFailure: r.config.Points.ShowOnDebitFailure,
	}
}

// buildEngine wires the workflow client, ledger and user store into a
// rewrite engine over the given database.
func (r *Runner) buildEngine(db *sql.DB) (*tasks.RewriteEngine, *repositories.PointsLedger, *repositories.UserRepository, error) {
	workflow := r.workflow
	if workflow == nil {
		svc, err := services.NewCozeService(r.config.Credentials.Coze, r.httpClient)
		if err != nil {
			return nil, nil, nil, err
		}
		svc.SetRetryPolicy(r.config.Workflow.MaxAttempts, r.config.Workflow.BaseDelay())
		workflow = svc
	}

	ledger := repositories.NewPointsLedger(db)
	users := repositories.NewUserRepository(db)
	engine := tasks.NewRewriteEngine(workflow, ledger, users, r.engineOptions())

	return engine, ledger, users, nil
}

// resolveUserID accepts either a user ID or an email and returns the account ID.
func (r *Runner) resolveUserID(users *repositories.UserRepository, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: --user is required", shared.ErrMissingArgument)
	}
	if user, err := users.Get(key); err == nil {
		return user.ID(), nil
	}
	user, err := users.GetByEmail(key)
	if err != nil {
		return "", err
	}
	return user.ID(), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
