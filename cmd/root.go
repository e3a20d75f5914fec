package cmd

import (
	"fmt"
	"os"

	"github.com/inconshreveable/log15"
	"github.com/spf13/cobra"
)

// appLogger is used for logging events in our commands.
var appLogger = log15.New()

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "bankweb",
	Short: "bankweb serves the bank's web front-end",
	Long:  `bankweb serves the bank's web front-end`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once to
// the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		die(err)
	}
}

func init() {
	// set up logging to stderr
	appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StderrHandler))
}

// logToFile logs to the given file.
func logToFile(path string) {
	fh, err := log15.FileHandler(path, log15.LogfmtFormat())
	if err != nil {
		fh = log15.StderrHandler

		warn("can't write to log file; logging to stderr instead (%s)", err)
	}

	appLogger.SetHandler(fh)
}

// checkEnvVarFlags fills in unset flags from their environment variables.
func checkEnvVarFlags(cmd *cobra.Command, envMap map[string]string) error {
	for env, flag := range envMap {
		if cmd.Flag(flag).Changed {
			continue
		}

		if val := os.Getenv(env); val != "" {
			if err := cmd.Flags().Set(flag, val); err != nil {
				return err
			}
		}
	}

	return nil
}

// info is a convenience to log a message at the Info level.
func info(msg string, a ...interface{}) {
	appLogger.Info(fmt.Sprintf(msg, a...))
}

// warn is a convenience to log a message at the Warn level.
func warn(msg string, a ...interface{}) {
	appLogger.Warn(fmt.Sprintf(msg, a...))
}

// die is a convenience to log a message at the Error level and exit non zero.
func die(err error) {
	appLogger.Error(err.Error())
	os.Exit(1)
}
