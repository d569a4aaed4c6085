package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/taskmind/taskmind/internal/ai"
	"github.com/taskmind/taskmind/internal/config"
	"github.com/taskmind/taskmind/internal/db"
	"github.com/taskmind/taskmind/internal/web"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "taskmind",
		Short:   "TaskMind - AI-assisted personal task manager",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		configPath string
		dbPath     string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the TaskMind API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := resolveConfigPath(configPath)
			if err != nil {
				return err
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			if dbPath != "" {
				cfg.DBPath = dbPath
			}
			if cfg.DBPath == "" {
				cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "taskmind.db")
			}
			if addr != "" {
				cfg.Addr = addr
			}

			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}

			store, err := openStore(cfg.DBPath)
			if err != nil {
				return err
			}

			client := ai.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model)
			return web.NewServer(store, client).Run(cfg.Addr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite db path")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")

	return cmd
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(dbPath string) (*db.Store, error) {
	if err := config.EnsureDir(dbPath); err != nil {
		return nil, err
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}

	return db.NewStore(sqlDB), nil
}
