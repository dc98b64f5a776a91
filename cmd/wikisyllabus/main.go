package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wikisyllabus/wikisyllabus/internal/database"
	"github.com/wikisyllabus/wikisyllabus/internal/logging"
	"github.com/wikisyllabus/wikisyllabus/internal/storage"
	"github.com/wikisyllabus/wikisyllabus/internal/web"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	port       int
	bind       string
	dbPath     string
	uploadsDir string
	logFile    string
	verbosity  int
	devMode    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wikisyllabus",
		Short: "Wikisyllabus - educational content portal",
		Long:  `Wikisyllabus is a small multi-tenant portal where teachers publish subjects, modules, content and tasks, and students submit proof-of-work files against tasks.`,
		RunE:  run,
	}

	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP server port (or set PORT env var)")
	rootCmd.Flags().StringVarP(&bind, "bind", "b", "", "IP address to bind to (e.g., 127.0.0.1, 0.0.0.0)")
	rootCmd.Flags().StringVarP(&dbPath, "db", "d", "./wikisyllabus.db", "SQLite database path (or set DB_PATH env var)")
	rootCmd.Flags().StringVarP(&uploadsDir, "uploads", "u", "./uploads", "Directory for proof-of-work files (or set UPLOADS_DIR env var)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (defaults to alongside the database)")
	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	rootCmd.Flags().BoolVar(&devMode, "dev", false, "Development mode (relaxed cookie security)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wikisyllabus %s (commit: %s, built: %s)\n", version, commit, date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// A local .env can supply the env fallbacks below
	_ = godotenv.Load()

	if envPort := os.Getenv("PORT"); envPort != "" && !cmd.Flags().Changed("port") {
		if _, err := fmt.Sscanf(envPort, "%d", &port); err != nil {
			return fmt.Errorf("invalid PORT environment variable %q: %w", envPort, err)
		}
	}
	if envDB := os.Getenv("DB_PATH"); envDB != "" && !cmd.Flags().Changed("db") {
		dbPath = envDB
	}
	if envUploads := os.Getenv("UPLOADS_DIR"); envUploads != "" && !cmd.Flags().Changed("uploads") {
		uploadsDir = envUploads
	}

	if bind != "" {
		if ip := net.ParseIP(bind); ip == nil {
			return fmt.Errorf("invalid bind address: %s", bind)
		}
	}

	if logFile == "" {
		logFile = logging.FilePathForDB(dbPath)
	}
	logging.Apply(verbosity, logFile)

	log.Info().
		Str("version", version).
		Int("port", port).
		Str("bind", bind).
		Str("database", dbPath).
		Str("uploads", uploadsDir).
		Msg("Starting Wikisyllabus")

	db, err := database.New(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	uploads, err := storage.New(uploadsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize upload storage")
	}

	server := web.NewServer(db, uploads, port, bind, devMode)

	scheduler := startMaintenance(db, uploads)
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}

	log.Info().Msg("Shutdown complete")
	return nil
}

// startMaintenance schedules the periodic housekeeping jobs: expired
// session purge, orphaned upload sweep, and planner stats refresh.
func startMaintenance(db *database.DB, uploads *storage.Store) *cron.Cron {
	c := cron.New()

	c.AddFunc("@hourly", func() {
		n, err := db.DeleteExpiredSessions()
		if err != nil {
			log.Error().Err(err).Msg("Failed to purge expired sessions")
			return
		}
		if n > 0 {
			log.Debug().Int64("count", n).Msg("Purged expired sessions")
		}
	})

	c.AddFunc("@daily", func() {
		referenced, err := db.ListSubmissionFilePaths()
		if err != nil {
			log.Error().Err(err).Msg("Failed to list submission files")
			return
		}
		uploads.LogOrphans(referenced)
	})

	c.AddFunc("@weekly", func() {
		if err := db.Optimize(); err != nil {
			log.Error().Err(err).Msg("Failed to optimize database")
		}
	})

	c.Start()
	return c
}
