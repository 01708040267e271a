package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"edition-publisher/config"
	"edition-publisher/logger"
	"edition-publisher/metrics"
	"edition-publisher/repositories"
	"edition-publisher/services"
	"edition-publisher/workflow"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "edition-publisher",
	Short: "Edition versioning and editorial workflow service",
	Long: `edition-publisher keeps the numbered editions of each published document,
moves them through the editorial workflow and archives superseded versions on publish.`,
	SilenceUsage: true,
}

// Execute runs the command named on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading the environment")
}

// stack is the wired application shared by the commands that touch the database.
type stack struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *gorm.DB
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	services *services.Services
}

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func openStack() (*stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	config.SetJWT(cfg.JWTSecret, cfg.JWTExpiration)

	log := logger.NewLogger(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	db, err := config.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	machine := workflow.NewDefault()
	if err := workflow.LoadRoles(machine, cfg.WorkflowRolesFile); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(registry)

	svc := services.New(services.Deps{
		Repos:      repositories.New(db),
		Transactor: repositories.NewTransactor(db),
		Machine:    machine,
		Logger:     log,
		Metrics:    m,
	})

	return &stack{cfg: cfg, log: log, db: db, registry: registry, metrics: m, services: svc}, nil
}

func (s *stack) close() {
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
