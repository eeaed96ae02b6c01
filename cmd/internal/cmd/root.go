// Package cmd wires the dataprofiler CLI's cobra commands: profile,
// detect-delimiter, and verify-key, plus the global logging flags every
// subcommand shares.
package cmd

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	dataprofiler "github.com/proflow/dataprofiler"
)

var (
	rootCmd = &cobra.Command{
		Use:          "dataprofiler",
		Short:        "dataprofiler",
		SilenceUsage: true,
		Long:         `Streaming single-file profiler for delimited text data.`,
	}

	logLevel  string
	logFormat string

	log = logrus.StandardLogger()
)

// Execute runs the root command.
func Execute() error {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	cobra.OnInitialize(configureLogger)
	return rootCmd.Execute()
}

func configureLogger() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if logFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{})
	}
}

// ExitCodeFor maps a RunProfile error to the exit code spec §6 defines:
// 0 success, 2 catastrophic data error, 3 I/O error, 4 cancelled, 1
// unexpected.
func ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var cancelled dataprofiler.CancelledError
	var failed dataprofiler.RunFailedError
	var catastrophic dataprofiler.CatastrophicError
	switch {
	case errors.As(err, &cancelled):
		err = cancelled
	case errors.As(err, &failed):
		err = failed
	case errors.As(err, &catastrophic):
		err = catastrophic
	}
	switch e := err.(type) {
	case dataprofiler.CancelledError:
		return 4
	case dataprofiler.RunFailedError:
		if e.Cause.Code == "E_IO" {
			return 3
		}
		return 2
	case dataprofiler.CatastrophicError:
		if e.Code == "E_IO" {
			return 3
		}
		return 2
	default:
		return 1
	}
}

func init() {
}
