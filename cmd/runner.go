package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/packstore/internal/access"
	"github.com/desertthunder/packstore/internal/repositories"
	"github.com/desertthunder/packstore/internal/server"
	"github.com/desertthunder/packstore/internal/shared"
	"github.com/desertthunder/packstore/internal/storage"
	"github.com/desertthunder/packstore/internal/tasks"
	"github.com/desertthunder/packstore/internal/ui"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
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

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, seedCommand, adminCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the config for a command, preferring the --config flag.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path == "" {
		return r.config
	}
	if config, err := shared.LoadConfig(path); err == nil {
		return config
	}
	return r.config
}

// openDatabase opens the configured database, applies pool settings and runs
// pending migrations.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, err
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Serve runs the HTTP fulfillment service until the process is stopped.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ents := repositories.NewEntitlementRepository(db)
	store := storage.NewClient(
		config.Storage.BaseURL,
		config.Storage.Bucket,
		storage.Credentials{
			Restricted: config.Storage.RestrictedKey,
			Service:    config.Storage.ServiceKey,
		},
		nil,
		r.logger,
	)

	router := server.NewAppRouter(server.AppOptions{
		Packs:         repositories.NewPackRepository(db),
		Tracks:        repositories.NewTrackRepository(db),
		Orders:        repositories.NewOrderRepository(db),
		Entitlements:  ents,
		Subscribers:   repositories.NewSubscriberRepository(db),
		Verifier:      access.NewVerifier(ents, r.logger),
		Store:         store,
		GatewaySecret: config.Gateway.Secret,
		RateLimit:     config.Server.RateLimit,
		RateBurst:     config.Server.RateBurst,
		Logger:        r.logger,
	})

	addr := config.Server.Addr()
	r.logger.Info("serving", "addr", addr, "bucket", config.Storage.Bucket)

	return http.ListenAndServe(addr, router)
}

// SetupDatabase initializes the database and applies migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.writePlainln("Database ready at %s", config.Database.Path)
	return nil
}

// SetupConfig writes the example config file to the given path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.writePlainln("Wrote %s", path)
	return nil
}

// Seed loads the catalog TOML file into the pack and track tables.
func (r *Runner) Seed(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	path := cmd.String("file")
	if path == "" {
		path = config.Catalog.SeedPath
	}

	catalog, err := tasks.LoadCatalog(path)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	seeder := tasks.NewCatalogSeeder(
		repositories.NewPackRepository(db),
		repositories.NewTrackRepository(db),
		r.logger,
	)

	result, err := seeder.Seed(catalog)
	if err != nil {
		return err
	}

	r.writePlainln("Seeded %d packs (%d skipped), %d tracks", result.PacksCreated, result.PacksSkipped, result.TracksCreated)
	return nil
}

// AdminEntitlements prints every entitlement row held by an email.
func (r *Runner) AdminEntitlements(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	email := cmd.String("email")

	db, err := r.openDatabase(config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	report, err := tasks.EntitlementReport(
		repositories.NewEntitlementRepository(db),
		repositories.NewPackRepository(db),
		email,
	)
	if err != nil {
		return err
	}

	if len(report) == 0 {
		r.writePlainln("No entitlements for %s", email)
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Entitlements for %s", email))
	for _, row := range report {
		expiry := "permanent"
		if row.ExpiresAt != nil {
			expiry = "expires " + row.ExpiresAt.Format("2006-01-02 15:04")
		}
		state := "valid"
		if !row.Valid {
			state = "EXPIRED"
		}
		title := row.PackTitle
		if title == "" {
			title = "(pack missing from catalog)"
		}
		r.writePlain("%-12s %-30s %-28s %s\n", row.PackID, title, expiry, state)
	}

	return nil
}

// AdminOrders prints the order history for an email.
func (r *Runner) AdminOrders(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	email := cmd.String("email")

	db, err := r.openDatabase(config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	orders, err := repositories.NewOrderRepository(db).List(map[string]any{"email": email})
	if err != nil {
		return err
	}

	if len(orders) == 0 {
		r.writePlainln("No orders for %s", email)
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Orders for %s", email))
	for _, o := range orders {
		r.writePlain("%s  %-12s %8d  %-10s %s\n",
			o.CreatedAt().Format("2006-01-02"), o.PackID(), o.Amount(), o.Status(), o.GatewayPaymentID())
	}

	return nil
}

// AdminTUI launches the interactive entitlement browser.
func (r *Runner) AdminTUI(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	email := cmd.String("email")

	db, err := r.openDatabase(config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	model := ui.NewModel(email,
		repositories.NewEntitlementRepository(db),
		repositories.NewPackRepository(db),
		repositories.NewTrackRepository(db),
	)

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
