// Package configflags defines the flags used by drivedup.  It is
// decoupled into a separate package so it can be replaced.
package configflags

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/config"
	"github.com/rclone/drivedup/fs/config/flags"
	"github.com/rclone/drivedup/lib/env"
	"github.com/spf13/pflag"
)

// these will get interpreted into the config via SetFlags() below
var (
	verbose int
	quiet   bool
)

// AddFlags adds the non backend specific flags to the command
func AddFlags(ci *fs.ConfigInfo, flagSet *pflag.FlagSet) {
	// NB defaults which aren't the zero for the type should be set in fs/config.go NewConfig
	flags.StringVarP(flagSet, &config.ConfigPath, "config", "", config.ConfigPath, "Config file")
	flags.CountVarP(flagSet, &verbose, "verbose", "v", "Print lots more stuff (repeat for more)")
	flags.BoolVarP(flagSet, &quiet, "quiet", "q", false, "Print as little stuff as possible")
	flags.VarP(flagSet, &ci.LogLevel, "log-level", "", "Log level DEBUG|INFO|NOTICE|ERROR")
	flags.BoolVarP(flagSet, &ci.UseJSONLog, "use-json-log", "", ci.UseJSONLog, "Use json log format")
	flags.IntVarP(flagSet, &ci.LowLevelRetries, "low-level-retries", "", ci.LowLevelRetries, "Number of low level retries to do")
	flags.Float64VarP(flagSet, &ci.TPSLimit, "tpslimit", "", ci.TPSLimit, "Limit HTTP transactions per second to this")
	flags.IntVarP(flagSet, &ci.TPSLimitBurst, "tpslimit-burst", "", ci.TPSLimitBurst, "Max burst of transactions for --tpslimit")
	flags.DurationVarP(flagSet, &ci.ConnectTimeout, "contimeout", "", ci.ConnectTimeout, "Connect timeout")
	flags.DurationVarP(flagSet, &ci.Timeout, "timeout", "", ci.Timeout, "IO idle timeout")
	flags.StringVarP(flagSet, &ci.UserAgent, "user-agent", "", ci.UserAgent, "Set the user-agent to a specified string")
	flags.BoolVarP(flagSet, &ci.DumpHeaders, "dump-headers", "", ci.DumpHeaders, "Dump HTTP headers - may contain sensitive info")
	flags.BoolVarP(flagSet, &ci.DumpBodies, "dump-bodies", "", ci.DumpBodies, "Dump HTTP headers and bodies - may contain sensitive info")
	flags.BoolVarP(flagSet, &ci.DumpAuth, "dump-auth", "", ci.DumpAuth, "Don't mask auth headers when dumping")
	flags.BoolVarP(flagSet, &ci.DryRun, "dry-run", "n", ci.DryRun, "Collect and summarise the source without copying anything")
	flags.BoolVarP(flagSet, &ci.ListFiles, "list", "", ci.ListFiles, "List every file of the source tree with its size")
	flags.BoolVarP(flagSet, &ci.AbortOnFolderError, "abort-on-folder-error", "", ci.AbortOnFolderError, "Stop the whole copy if a folder can't be created")
	flags.StringVarP(flagSet, &ci.ErrorLog, "error-log", "", ci.ErrorLog, "File to write comments which couldn't be copied to (default stderr)")
	flags.StringVarP(flagSet, &ci.MetricsFile, "metrics-file", "", ci.MetricsFile, "Write prometheus metrics to this file when finished")
}

// SetFlags converts any flags into config which weren't straight forward
func SetFlags(ci *fs.ConfigInfo, flagSet *pflag.FlagSet) error {
	if err := flags.Check(); err != nil {
		return err
	}
	if verbose >= 2 {
		ci.LogLevel = fs.LogLevelDebug
	} else if verbose >= 1 {
		ci.LogLevel = fs.LogLevelInfo
	}
	if quiet {
		if verbose > 0 {
			return errors.New("can't set -v and -q")
		}
		ci.LogLevel = fs.LogLevelError
	}
	logLevelFlag := flagSet.Lookup("log-level")
	if logLevelFlag != nil && logLevelFlag.Changed {
		if verbose > 0 {
			return errors.New("can't set -v and --log-level")
		}
		if quiet {
			return errors.New("can't set -q and --log-level")
		}
	}
	if ci.LowLevelRetries < 1 {
		return errors.Errorf("--low-level-retries must be at least 1, got %d", ci.LowLevelRetries)
	}

	// Make the config file absolute
	config.ConfigPath = env.ShellExpand(config.ConfigPath)
	configPath, err := filepath.Abs(config.ConfigPath)
	if err == nil {
		config.ConfigPath = configPath
	}
	return nil
}
