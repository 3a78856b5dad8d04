package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/clinicrx/clinic/internal/config"
	"github.com/clinicrx/clinic/internal/domain/catalog"
	"github.com/clinicrx/clinic/internal/domain/identity"
	"github.com/clinicrx/clinic/internal/domain/prescription"
	"github.com/clinicrx/clinic/internal/platform/db"
	"github.com/clinicrx/clinic/internal/platform/sandbox"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic prescription API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(clinicCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// openPool loads the configuration and connects to the database.
func openPool(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations to a clinic schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic, _ := cmd.Flags().GetString("clinic")
			dir, _ := cmd.Flags().GetString("dir")
			if !db.ValidClinicID(clinic) {
				return fmt.Errorf("invalid clinic identifier: %q", clinic)
			}

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			schema := db.SchemaName(clinic)
			fmt.Printf("Running migrations on schema: %s\n", schema)
			if err := db.CreateClinicSchema(ctx, pool, clinic, ""); err != nil {
				return err
			}
			count, err := db.NewMigrator(pool, dir).Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("clinic", "default", "Clinic identifier")
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status of a clinic schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic, _ := cmd.Flags().GetString("clinic")
			dir, _ := cmd.Flags().GetString("dir")
			if !db.ValidClinicID(clinic) {
				return fmt.Errorf("invalid clinic identifier: %q", clinic)
			}

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if dir == "" {
				dir = cfg.MigrationsDir
			}

			schema := db.SchemaName(clinic)
			statuses, err := db.NewMigrator(pool, dir).Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Print(formatStatus(statuses))
			return nil
		},
	}
	statusCmd.Flags().String("clinic", "default", "Clinic identifier")
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func clinicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Manage clinics",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create and migrate a clinic schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating clinic schema: %s\n", db.SchemaName(name))
			if err := db.CreateClinicSchema(ctx, pool, name, cfg.MigrationsDir); err != nil {
				return err
			}
			fmt.Println("Clinic created. Seed its catalog with: clinic-server seed --clinic", name)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Clinic identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the default medicines and lab tests into a clinic, optionally with demo patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic, _ := cmd.Flags().GetString("clinic")
			demo := sandbox.DefaultSeedConfig()
			demo.PatientCount, _ = cmd.Flags().GetInt("demo-patients")
			demo.Seed, _ = cmd.Flags().GetInt64("demo-seed")

			ctx := context.Background()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger("development", os.Stdout)
			txRunner := db.NewTxRunner(pool)
			catalogSvc := catalog.NewService(catalog.NewMedicineRepoPG(pool), catalog.NewLabTestRepoPG(pool), logger)
			catalogSvc.SetTxRunner(txRunner)

			return db.WithClinicConn(ctx, pool, clinic, func(ctx context.Context) error {
				res, err := catalogSvc.SeedDefaults(ctx)
				if err != nil {
					return fmt.Errorf("seed clinic %s: %w", clinic, err)
				}
				fmt.Printf("Seeded %d medicine(s) and %d lab test(s).\n", res.Medicines, res.LabTests)

				if demo.PatientCount <= 0 {
					return nil
				}
				identitySvc := identity.NewService(identity.NewPatientRepoPG(pool), identity.NewUserRepoPG(pool),
					identity.NewDoctorRepoPG(pool), logger)
				identitySvc.SetTxRunner(txRunner)
				rxSvc := prescription.NewService(prescription.NewRepoPG(pool), identitySvc, identitySvc, catalogSvc, logger)
				rxSvc.SetTxRunner(txRunner)

				demoRes, err := sandbox.NewSeeder(demo, identitySvc, rxSvc, catalogSvc, logger).Run(ctx)
				if err != nil {
					return fmt.Errorf("seed demo data: %w", err)
				}
				fmt.Printf("Created %d demo patient(s) with %d prescription(s).\n", demoRes.Patients, demoRes.Prescriptions)
				return nil
			})
		},
	}
	cmd.Flags().String("clinic", "default", "Clinic identifier")
	cmd.Flags().Int("demo-patients", 0, "Also create this many synthetic patients with prescriptions")
	cmd.Flags().Int64("demo-seed", 0, "Random seed for demo data (0 picks one)")
	return cmd
}

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Manage doctor accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a doctor login with its letterhead profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic, _ := cmd.Flags().GetString("clinic")
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			d := doctorFromFlags(cmd)

			ctx := context.Background()
			_, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := identity.NewService(identity.NewPatientRepoPG(pool), identity.NewUserRepoPG(pool),
				identity.NewDoctorRepoPG(pool), newLogger("development", os.Stdout))
			svc.SetTxRunner(db.NewTxRunner(pool))

			var u *identity.User
			err = db.WithClinicConn(ctx, pool, clinic, func(ctx context.Context) error {
				u, err = svc.CreateDoctorAccount(ctx, username, password, d)
				return err
			})
			if err != nil {
				return fmt.Errorf("create doctor: %w", err)
			}
			fmt.Printf("Created doctor %s (user %s, doctor %s)\n", d.DisplayName(), u.ID, d.ID)
			return nil
		},
	}
	f := createCmd.Flags()
	f.String("clinic", "default", "Clinic identifier")
	f.String("username", "", "Login name")
	f.String("password", "", "Login password")
	f.String("name", "", "Doctor name as printed on prescriptions")
	f.String("title", "", "Designation printed under the name, e.g. Assistant Professor")
	f.String("credentials", "", "Degrees, e.g. MBBS, FCPS")
	f.String("specialization", "", "Specialization line of the letterhead")
	f.String("phone", "", "Contact phone")
	f.String("hospital", "", "Hospital name")
	f.String("address", "", "Hospital address")
	f.String("tagline", "", "Hospital tagline")

	cmd.AddCommand(createCmd)
	return cmd
}

func doctorFromFlags(cmd *cobra.Command) *identity.Doctor {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	return &identity.Doctor{
		Name:            get("name"),
		Title:           get("title"),
		Credentials:     get("credentials"),
		Specialization:  get("specialization"),
		Phone:           get("phone"),
		HospitalName:    get("hospital"),
		HospitalAddress: get("address"),
		HospitalTagline: get("tagline"),
	}
}

func formatStatus(statuses []db.MigrationStatus) string {
	out := fmt.Sprintf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	out += "---------- ---------------------------------------- ---------- --------------------\n"
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		out += fmt.Sprintf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
	return out
}
