/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"database/sql"
	"fmt"
	"log"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence"
	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/database"
)

const migrationSchema = "cadence"

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: cadence.SQLFiles,
		Root:       "sql",
	}
}

// openMigrationDB connects with the configured DSN and points sql-migrate's bookkeeping
// table at the cadence schema.
func openMigrationDB() (*sql.DB, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, fmt.Errorf("error fetching config: %w", err)
	}
	db, err := database.ConnectDB(cnf.DataSource.Dns)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	migrate.SetSchema(migrationSchema)
	return db, nil
}

// runMigrations applies up to max migrations in direction; max 0 means all pending.
func runMigrations(direction migrate.MigrationDirection, max int) (int, error) {
	db, err := openMigrationDB()
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return migrate.ExecMax(db, "postgres", migrationSource(), direction, max)
}

func migrateCommands(_ *cadenceInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply or roll back the cadence schema",
	}
	cmd.AddCommand(migrateUpCommands(), migrateDownCommands(), migrateStatusCommands())
	return cmd
}

func migrateUpCommands() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "apply all pending migrations",
		Run: func(cmd *cobra.Command, args []string) {
			n, err := runMigrations(migrate.Up, 0)
			if err != nil {
				log.Printf("Error migrating up: %v", err)
				return
			}
			fmt.Printf("Applied %d migrations!\n", n)
		},
	}
}

func migrateDownCommands() *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "roll back the most recent migrations",
		Run: func(cmd *cobra.Command, args []string) {
			n, err := runMigrations(migrate.Down, steps)
			if err != nil {
				log.Printf("Error migrating down: %v", err)
				return
			}
			fmt.Printf("Rolled back %d migrations!\n", n)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back (0 rolls back all)")
	return cmd
}

func migrateStatusCommands() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "list applied migrations",
		Run: func(cmd *cobra.Command, args []string) {
			db, err := openMigrationDB()
			if err != nil {
				log.Print(err)
				return
			}
			defer db.Close()

			records, err := migrate.GetMigrationRecords(db, "postgres")
			if err != nil {
				log.Printf("Error reading migration records: %v", err)
				return
			}
			for _, r := range records {
				fmt.Printf("%-28s %s\n", r.Id, r.AppliedAt.Format("2006-01-02 15:04:05"))
			}
		},
	}
}
