package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MadScie254/hospitalmanagement/internal/config"
	"github.com/MadScie254/hospitalmanagement/internal/domain/account"
	"github.com/MadScie254/hospitalmanagement/internal/domain/appointment"
	"github.com/MadScie254/hospitalmanagement/internal/domain/approval"
	"github.com/MadScie254/hospitalmanagement/internal/domain/discharge"
	"github.com/MadScie254/hospitalmanagement/internal/domain/profile"
	"github.com/MadScie254/hospitalmanagement/internal/platform/auth"
	"github.com/MadScie254/hospitalmanagement/internal/platform/calendar"
	"github.com/MadScie254/hospitalmanagement/internal/platform/db"
	"github.com/MadScie254/hospitalmanagement/internal/platform/events"
	"github.com/MadScie254/hospitalmanagement/internal/platform/jobs"
	"github.com/MadScie254/hospitalmanagement/internal/platform/metrics"
	"github.com/MadScie254/hospitalmanagement/internal/platform/middleware"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hms-server",
		Short: "Hospital management API server",
	}
	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(accountCmd())
	return root
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

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			to, _ := cmd.Flags().GetInt("to")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				migrator := db.NewMigrator(pool, migrationsDir(dir, cfg))
				var (
					count int
					err   error
				)
				if to > 0 {
					count, err = migrator.UpTo(ctx, to)
				} else {
					count, err = migrator.Up(ctx)
				}
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	upCmd.Flags().Int("to", 0, "Stop after this migration version")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				statuses, err := db.NewMigrator(pool, migrationsDir(dir, cfg)).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}

	createAdmin := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				svc := account.NewService(account.NewRepo(pool), auth.NewPasswordHasher(0), nil, nil, zerolog.Nop())
				acct, err := svc.Create(ctx, username, password, auth.RoleAdmin)
				if err != nil {
					return err
				}
				fmt.Printf("Created admin %s (%s)\n", acct.Username, acct.ID)
				return nil
			})
		},
	}
	createAdmin.Flags().String("username", "", "Admin username")
	createAdmin.Flags().String("password", "", "Admin password")
	cmd.AddCommand(createAdmin)

	return cmd
}

func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func migrationsDir(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.MigrationsDir
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// repositories is the storage behind the services. Production uses Postgres;
// tests swap in the in-memory implementations.
type repositories struct {
	accounts     account.Repository
	doctors      profile.DoctorRepository
	patients     profile.PatientRepository
	appointments appointment.Repository
	episodes     discharge.EpisodeRepository
	discharges   discharge.Repository
}

func postgresRepositories(pool *pgxpool.Pool) repositories {
	return repositories{
		accounts:     account.NewRepo(pool),
		doctors:      profile.NewDoctorRepo(pool),
		patients:     profile.NewPatientRepo(pool),
		appointments: appointment.NewRepo(pool),
		episodes:     discharge.NewEpisodeRepo(pool),
		discharges:   discharge.NewRepo(pool),
	}
}

type services struct {
	accounts     *account.Service
	profiles     *profile.Service
	approvals    *approval.Service
	appointments *appointment.Service
	discharges   *discharge.Service
}

type serviceDeps struct {
	repos     repositories
	tx        db.Transactor
	issuer    *auth.TokenIssuer
	logins    account.LoginObserver
	publisher events.Publisher
	clock     calendar.Clock
	loc       *time.Location
	logger    zerolog.Logger
}

func newServices(d serviceDeps) *services {
	s := &services{}
	s.accounts = account.NewService(d.repos.accounts, auth.NewPasswordHasher(0), d.issuer, d.logins, d.logger)
	s.profiles = profile.NewService(profile.Deps{
		Tx: d.tx, Accounts: s.accounts, Doctors: d.repos.doctors, Patients: d.repos.patients,
		Publisher: d.publisher, Clock: d.clock, Location: d.loc, Logger: d.logger,
	})
	s.appointments = appointment.NewService(appointment.Deps{
		Tx: d.tx, Appointments: d.repos.appointments, Doctors: d.repos.doctors, Patients: d.repos.patients,
		Publisher: d.publisher, Clock: d.clock, Location: d.loc, Logger: d.logger,
	})
	s.discharges = discharge.NewService(discharge.Deps{
		Tx: d.tx, Discharges: d.repos.discharges, Episodes: d.repos.episodes,
		Doctors: d.repos.doctors, Patients: d.repos.patients,
		Publisher: d.publisher, Clock: d.clock, Location: d.loc, Logger: d.logger,
	})
	s.approvals = approval.NewService(approval.Deps{
		Tx: d.tx, Doctors: d.repos.doctors, Patients: d.repos.patients,
		Episodes: s.discharges, Appointments: s.appointments, Discharges: s.discharges,
		Publisher: d.publisher, Clock: d.clock, Location: d.loc, Logger: d.logger,
	})
	return s
}

// newRouter builds the HTTP surface: public signup and login at the root,
// everything else under /api/v1 behind the bearer token.
func newRouter(cfg *config.Config, svc *services, issuer *auth.TokenIssuer, reg *metrics.Registry, hub *events.Hub, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{HSTS: cfg.ForceHTTPS}))
	e.Use(echomw.BodyLimit(cfg.BodyLimit))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(reg.Middleware())
	e.Use(auth.JWTMiddleware(issuer, auth.AuthSkipper))
	e.Use(middleware.Audit(logger))
	e.Use(middleware.RequestTimeout(middleware.TimeoutConfig{
		Timeout: cfg.RequestTimeout,
		Skipper: middleware.SkipEventStream,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/metrics", echo.WrapHandler(reg.Handler()))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	limiter := middleware.RateLimit(rateLimitCfg)

	accountHandler := account.NewHandler(svc.accounts)
	profileHandler := profile.NewHandler(svc.profiles, cfg.AllowAdminSignup)

	public := e.Group("", limiter)
	accountHandler.RegisterPublicRoutes(public)
	profileHandler.RegisterPublicRoutes(public)

	apiV1 := e.Group("/api/v1", limiter)
	accountHandler.RegisterRoutes(apiV1)
	profileHandler.RegisterRoutes(apiV1)
	approval.NewHandler(svc.approvals).RegisterRoutes(apiV1)
	appointment.NewHandler(svc.appointments).RegisterRoutes(apiV1)
	discharge.NewHandler(svc.discharges).RegisterRoutes(apiV1)

	if hub != nil {
		stream := events.NewStreamHandler(hub, cfg.CORSOrigins)
		apiV1.GET("/admin/events", stream.Connect, auth.RequireRole(auth.RoleAdmin))
	}
	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	reg := metrics.New()
	if err := reg.Register(metrics.NewPoolCollector(pool)); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}
	hub := events.NewHub(logger)
	publisher := events.Multi{events.NewLogPublisher(logger), hub, reg.EventCounter()}

	issuer := auth.NewTokenIssuer(auth.JWTConfig{
		SigningKey: []byte(cfg.JWTSecret),
		Issuer:     "hms",
		TTL:        cfg.JWTTTL,
	})
	svc := newServices(serviceDeps{
		repos:     postgresRepositories(pool),
		tx:        db.NewTransactor(pool),
		issuer:    issuer,
		logins:    reg,
		publisher: publisher,
		clock:     calendar.SystemClock{},
		loc:       loc,
		logger:    logger,
	})

	e := newRouter(cfg, svc, issuer, reg, hub, logger)
	e.GET("/health/db", db.HealthHandler(pool))

	var scheduler *jobs.Scheduler
	if cfg.JobsEnabled {
		scheduler = jobs.NewScheduler(logger, loc, 5*time.Minute)
		if err := scheduler.Add(cfg.ReminderCron, appointment.NewReminderJob(svc.appointments)); err != nil {
			return fmt.Errorf("schedule reminders: %w", err)
		}
		scheduler.Start()
		logger.Info().Str("spec", cfg.ReminderCron).Msg("appointment reminders scheduled")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", loc.String()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
