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
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cadencehq/cadence"
	"github.com/cadencehq/cadence/config"
	"github.com/cadencehq/cadence/database"
	"github.com/cadencehq/cadence/internal/notification"
)

// CLI represents the command-line application, encapsulating the root Cobra command.
type CLI struct {
	cmd *cobra.Command
}

// cadenceInstance holds the runtime Cadence instance and its configuration for the subcommands.
type cadenceInstance struct {
	cadence *cadence.Cadence
	cnf     *config.Configuration
}

// recoverPanic handles any panics during program execution and logs the error using Logrus.
func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the Cadence instance before running any command.
func preRun(app *cadenceInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newCadence, err := setupCadence(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.cadence = newCadence
		app.cnf = cnf

		return nil
	}
}

// setupCadence connects to the data source and builds the Cadence instance on top of it.
func setupCadence(cfg *config.Configuration) (*cadence.Cadence, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newCadence, err := cadence.NewCadence(db)
	if err != nil {
		return nil, fmt.Errorf("error creating cadence: %v", err)
	}
	return newCadence, nil
}

// NewCLI creates the root command and registers the server, worker, migration and reporting subcommands.
func NewCLI() *CLI {
	var configFile string
	c := &cadenceInstance{}

	var rootCmd = &cobra.Command{
		Use:   "cadence",
		Short: "Follow-up scheduling for field sales",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./cadence.json", "Configuration file for cadence")
	rootCmd.PersistentPreRunE = preRun(c, &configFile)

	rootCmd.AddCommand(serverCommands(c))
	rootCmd.AddCommand(workerCommands(c))
	rootCmd.AddCommand(migrateCommands(c))
	rootCmd.AddCommand(planCommands(c))
	rootCmd.AddCommand(reportCommands(c))
	rootCmd.AddCommand(configCommands())

	return &CLI{cmd: rootCmd}
}

func (w CLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
