package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"onboarding/internal/config"
	"onboarding/internal/database"
	"onboarding/internal/logger"
	"onboarding/internal/realtime"
	"onboarding/internal/repository"
	"onboarding/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	exportFrom, exportTo, exportOut                 string
	regName, regCPF, regJob, regCompany, regHiredBy string
)

// deps is the slice of the service graph the CLI needs
type deps struct {
	log       *logger.Logger
	db        *gorm.DB
	modules   service.ModuleService
	employees service.EmployeeService
	export    service.ExportService
}

func openDeps() (*deps, error) {
	cfg, _ := config.Load(envFile)
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, err
	}
	db, err := database.NewConnection(cfg.DBDriver, cfg.DSN(), log)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	txManager := repository.NewTransactionManager(db)
	moduleRepo := repository.NewModuleRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)

	return &deps{
		log: log,
		db:  db,
		// the CLI has no websocket clients; events still land in the log for replay
		modules:   service.NewModuleService(moduleRepo, repository.NewCatalogEventRepository(db), txManager, realtime.NewLocalBus(), log),
		employees: service.NewEmployeeService(employeeRepo, repository.NewHistoryRepository(db), txManager, service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), log),
		export:    service.NewExportService(employeeRepo, time.Local),
	}, nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.log.Sync()
		// NewConnection migrates; run again so the command is explicit about it
		if err := database.Migrate(d.db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Install the default module catalog into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.log.Sync()

		n, err := d.modules.SeedDefaults(cmd.Context())
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "catalog already present, nothing seeded")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d modules\n", n)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the employee CSV export",
	Long: `Write the employee CSV export.

With --from and --to only employees who completed onboarding inside the
inclusive day range are exported; otherwise every employee is listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.log.Sync()

		rng, err := d.export.ParseRange(exportFrom, exportTo)
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}

		n, err := d.export.WriteCSV(cmd.Context(), w, rng)
		if err != nil {
			return err
		}
		if exportOut != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d employees to %s\n", n, exportOut)
		}
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register-employee",
	Short: "Register an employee from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps()
		if err != nil {
			return err
		}
		defer d.log.Sync()

		employee, err := d.employees.Register(cmd.Context(), "onboardctl", service.RegisterEmployeeRequest{
			FullName:    regName,
			CPF:         regCPF,
			JobPosition: regJob,
			Company:     regCompany,
			HiredBy:     regHiredBy,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s) id=%s\n", employee.FullName, employee.CPF, employee.ID)
		return nil
	},
}
