package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskzen/internal/config"
)

type rootOptions struct {
	configFile string
	v          *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "taskzen",
		Short: "TaskZen - projects, kanban boards and task statistics",
		Long: `TaskZen serves the HTTP API of the TaskZen kanban application and
offers maintenance commands on its SQLite database.

Settings come from flags, TASKZEN_* environment variables (db.path is
TASKZEN_DB_PATH), a .env file and an optional config file.

Examples:
  # Run the API with a shared secret
  TASKZEN_AUTH_SECRET=change-me taskzen serve --addr :8080

  # Export a board as YAML
  taskzen export --user <user-id> --project <project-id>`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Config file (yaml, json or toml)")
	cmd.PersistentFlags().String("db", "", "Path to sqlite database file")
	cmd.PersistentFlags().String("db-driver", "", "SQLite driver: sqlite3 (cgo) or sqlite (pure Go)")

	cmd.AddCommand(newServeCmd(opts), newExportCmd(opts))
	return cmd
}

// load binds the flags of cmd that were declared with a config key and
// resolves the settings.
func (o *rootOptions) load(cmd *cobra.Command, flagKeys map[string]string) (config.Config, error) {
	keys := map[string]string{"db": "db.path", "db-driver": "db.driver"}
	for name, key := range flagKeys {
		keys[name] = key
	}
	if err := config.BindFlags(o.v, cmd.Flags(), keys); err != nil {
		return config.Config{}, err
	}
	return config.Load(o.v, o.configFile)
}
