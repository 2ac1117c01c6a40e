// Package logflags implements command line flags to set up the log
package logflags

import (
	"github.com/rclone/drivedup/fs/config/flags"
	"github.com/rclone/drivedup/fs/log"
	"github.com/spf13/pflag"
)

// AddFlags adds the log flags to the flagSet
func AddFlags(flagSet *pflag.FlagSet) {
	flags.StringVarP(flagSet, &log.Opt.File, "log-file", "", log.Opt.File, "Log everything to this file")
	flags.IntVarP(flagSet, &log.Opt.MaxSize, "log-file-max-size", "", log.Opt.MaxSize, "Maximum size in MiB of the log file before it's rotated, 0 for no rotation")
	flags.IntVarP(flagSet, &log.Opt.MaxBackups, "log-file-max-backups", "", log.Opt.MaxBackups, "Maximum number of rotated log files to keep")
	flags.VarP(flagSet, &log.Opt.MaxAge, "log-file-max-age", "", "Maximum age of rotated log files (eg \"7d\")")
	flags.BoolVarP(flagSet, &log.Opt.Compress, "log-file-compress", "", log.Opt.Compress, "Compress rotated log files using gzip")
}
