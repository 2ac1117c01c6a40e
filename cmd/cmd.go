// Package cmd implements the drivedup command
//
// It is in a sub package so it's internals can be re-used elsewhere
package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rclone/drivedup/backend/drive"
	"github.com/rclone/drivedup/fs"
	"github.com/rclone/drivedup/fs/accounting"
	"github.com/rclone/drivedup/fs/config"
	"github.com/rclone/drivedup/fs/config/configfile"
	"github.com/rclone/drivedup/fs/config/configflags"
	"github.com/rclone/drivedup/fs/config/flags"
	"github.com/rclone/drivedup/fs/fserrors"
	"github.com/rclone/drivedup/fs/fshttp"
	"github.com/rclone/drivedup/fs/fspath"
	fslog "github.com/rclone/drivedup/fs/log"
	"github.com/rclone/drivedup/fs/log/logflags"
	"github.com/rclone/drivedup/fs/operations"
	"github.com/rclone/drivedup/fs/session"
	"github.com/rclone/drivedup/fs/tree"
	"github.com/rclone/drivedup/fs/walk"
	"github.com/rclone/drivedup/lib/exitcode"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Globals
var (
	// Flags
	version bool
)

// backendName is the config section and flag prefix of the drive
const backendName = "drive"

// usageError marks an error in the arguments or flags
type usageError struct {
	error
}

// Cause returns the underlying error
func (e usageError) Cause() error {
	return e.error
}

// Unwrap returns the underlying error
func (e usageError) Unwrap() error {
	return e.error
}

// Root is the main drivedup command
var Root = &cobra.Command{
	Use:   "drivedup [flags] <source> <destination>",
	Short: "Duplicate a Google Drive folder with its comments - " + fs.Version,
	Long: `
Drivedup copies a file or folder tree from one place in a Google Drive
to another in the same drive. Folders are created anew, files are
copied server side with their modification times and every comment
thread is copied across with the author's name in the text.

Paths are slash separated from the root of the drive, "/" being the
root itself. A first segment which isn't found in the root is looked
for among the items shared with you and the path "." means every
item which has no parent.

The destination folders are made if they don't exist.

    drivedup "Projects/2021" "Archive/Projects"
`,
	Run: func(command *cobra.Command, args []string) {
		if version {
			ShowVersion()
			os.Exit(exitcode.Success)
		}
		CheckArgs(2, 2, command, args)
		ctx := context.Background()
		err := initConfig(ctx, command.Flags())
		if err != nil {
			_ = command.Usage()
			log.Printf("Failed to start: %v", err)
			resolveExitCode(err)
		}
		err = Run(ctx, args[0], args[1])
		if err != nil {
			log.Printf("Failed to %s: %v", command.Name(), err)
		}
		resolveExitCode(err)
	},
}

func init() {
	Root.Flags().BoolVarP(&version, "version", "V", false, "Print the version number")
	ci := fs.GetConfig(context.Background())
	configflags.AddFlags(ci, Root.Flags())
	logflags.AddFlags(Root.Flags())
	AddBackendFlags(Root.Flags())
}

// ShowVersion prints the version to stdout
func ShowVersion() {
	fmt.Printf("drivedup %s\n", fs.Version)
	fmt.Printf("- os/type: %s\n", runtime.GOOS)
	fmt.Printf("- os/arch: %s\n", runtime.GOARCH)
	fmt.Printf("- go/version: %s\n", runtime.Version())
}

// CheckArgs checks there are enough arguments and prints a message if not
func CheckArgs(MinArgs, MaxArgs int, cmd *cobra.Command, args []string) {
	if len(args) < MinArgs {
		_ = cmd.Usage()
		_, _ = fmt.Fprintf(os.Stderr, "Command %s needs %d arguments minimum: you provided %d non flag arguments: %q\n", cmd.Name(), MinArgs, len(args), args)
		resolveExitCode(usageError{fs.ErrorNotEnoughArguments})
	} else if len(args) > MaxArgs {
		_ = cmd.Usage()
		_, _ = fmt.Fprintf(os.Stderr, "Command %s needs %d arguments maximum: you provided %d non flag arguments: %q\n", cmd.Name(), MaxArgs, len(args), args)
		resolveExitCode(usageError{fs.ErrorTooManyArguments})
	}
}

// initConfig is run after the flags have been parsed
func initConfig(ctx context.Context, flagSet *pflag.FlagSet) error {
	ci := fs.GetConfig(ctx)

	// Finish parsing any command line flags
	if err := configflags.SetFlags(ci, flagSet); err != nil {
		return usageError{err}
	}

	// Start the logger
	if err := fslog.InitLogging(ctx); err != nil {
		return err
	}

	// Load the config
	configfile.Install()
	if err := config.LoadedData(); err != nil {
		return err
	}

	// Count the HTTP responses if we are going to report them
	if ci.MetricsFile != "" {
		fshttp.DefaultMetrics = fshttp.NewMetrics("drivedup")
	}

	// Write the args for debug purposes
	fs.Debugf("drivedup", "Version %q starting with parameters %q", fs.Version, os.Args)
	return nil
}

// AddBackendFlags creates a --drive-<option> flag for each of the
// drive backend options
func AddBackendFlags(flagSet *pflag.FlagSet) {
	for i := range drive.OptionsInfo {
		opt := &drive.OptionsInfo[i]
		name := opt.FlagName(backendName)
		if flagSet.Lookup(name) != nil {
			fs.Errorf(nil, "Not adding duplicate flag --%s", name)
			continue
		}
		// Take first line of help only
		help := strings.TrimSpace(opt.Help)
		if nl := strings.IndexRune(help, '\n'); nl >= 0 {
			help = help[:nl]
		}
		flags.VarP(flagSet, opt, name, "", strings.TrimSpace(help))
		if _, isBool := opt.Default.(bool); isBool {
			flagSet.Lookup(name).NoOptDefVal = "true"
		}
	}
}

// NewStore makes the retrying connection to the drive configured
// in the config file and flags
func NewStore(ctx context.Context, stats *accounting.StatsInfo) (*session.Session, error) {
	m := fs.ConfigMap(backendName, drive.OptionsInfo, config.Section(backendName))
	auth, err := drive.NewAuth(backendName, m)
	if err != nil {
		return nil, usageError{err}
	}
	return session.New(ctx, auth, auth.Calculator(), stats), nil
}

// Run duplicates srcArg to dstArg on the configured drive
func Run(ctx context.Context, srcArg, dstArg string) (err error) {
	ci := fs.GetConfig(ctx)
	stats := accounting.NewStats()
	defer func() {
		if stats.HadErrors() || stats.GetFiles() > 0 {
			stats.Log()
		}
		if ci.MetricsFile != "" {
			if metricsErr := WriteMetrics(ci.MetricsFile, stats); metricsErr != nil {
				fs.Errorf(nil, "%v", metricsErr)
			}
		}
	}()
	errorLog, closeErrorLog, err := openErrorLog(ci.ErrorLog)
	if err != nil {
		return err
	}
	defer closeErrorLog()
	store, err := NewStore(ctx, stats)
	if err != nil {
		return err
	}
	if err := store.Open(ctx); err != nil {
		return err
	}
	return Duplicate(ctx, store, stats, srcArg, dstArg, os.Stdout, errorLog)
}

// openErrorLog opens the file comment failures are written to
func openErrorLog(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stderr, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open error log")
	}
	return f, func() {
		if err := f.Close(); err != nil {
			fs.Errorf(nil, "Failed to close error log: %v", err)
		}
	}, nil
}

// parseArgs checks the source and destination paths
func parseArgs(srcArg, dstArg string) (src, dst fspath.Path, err error) {
	src, err = fspath.Parse(srcArg)
	if err != nil {
		return nil, nil, usageError{errors.Wrap(err, "bad source")}
	}
	dst, err = fspath.Parse(dstArg)
	if err != nil {
		return nil, nil, usageError{errors.Wrap(err, "bad destination")}
	}
	if err = dst.CheckDestination(); err != nil {
		return nil, nil, errors.Wrapf(fs.ErrorInvalidDestination, "%q: %v", dstArg, err)
	}
	return src, dst, nil
}

// Duplicate copies srcArg to dstArg within store.
//
// The source is read completely and summarised on out before
// anything is made. Progress lines go to out and comments which
// couldn't be copied to errorLog.
func Duplicate(ctx context.Context, store fs.Store, stats *accounting.StatsInfo, srcArg, dstArg string, out, errorLog io.Writer) error {
	ci := fs.GetConfig(ctx)
	src, dst, err := parseArgs(srcArg, dstArg)
	if err != nil {
		return err
	}

	collector := walk.New(store)
	t, err := collector.Collect(ctx, src)
	if err != nil {
		return err
	}
	summary := tree.Summarize(t)
	_, _ = fmt.Fprintf(out, "# %s total files, %s total bytes, (%s files of unknown size)\n",
		humanize.Comma(summary.Files), humanize.Comma(summary.Bytes), humanize.Comma(summary.Unknown))
	if skipped := collector.Skipped(); skipped > 0 {
		fs.Logf(nil, "Skipped %d objects with duplicate names", skipped)
	}

	if ci.ListFiles {
		err = tree.Walk(t, func(path string, o *fs.Object) error {
			_, err := fmt.Fprintf(out, "%9d %s\n", o.Size, strings.TrimPrefix(path, "/"))
			return err
		})
		if err != nil {
			return err
		}
	}

	if ci.DryRun {
		_, err = operations.FindPath(ctx, store, dst)
		if errors.Is(err, fs.ErrorPathNotFound) {
			fs.Logf(nil, "Destination %q doesn't exist and would be made", dst.String())
			err = nil
		}
		if err != nil {
			return err
		}
		fs.Logf(nil, "Not copying as --dry-run is set")
		return nil
	}

	dstDir, err := operations.EnsurePath(ctx, store, dst)
	if err != nil {
		return err
	}
	copier := operations.NewCopier(store, operations.CopyOpt{
		Progress:           out,
		ErrorLog:           errorLog,
		AbortOnFolderError: ci.AbortOnFolderError,
	}, stats)
	return copier.Replicate(ctx, dstDir, t)
}

// WriteMetrics writes the run statistics and HTTP counters to path
// in the node exporter textfile format
func WriteMetrics(path string, stats *accounting.StatsInfo) error {
	registry := prometheus.NewRegistry()
	collectors := append([]prometheus.Collector{accounting.NewCollector(stats)}, fshttp.DefaultMetrics.Collectors()...)
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return errors.Wrap(err, "failed to register metrics")
		}
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return errors.Wrap(err, "failed to write metrics")
	}
	return nil
}

// exitCode works out the exit status for err
func exitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	var usage usageError
	switch {
	case errors.As(err, &usage):
		return exitcode.UsageError
	case errors.Is(err, fs.ErrorPathNotFound):
		return exitcode.PathNotFound
	case errors.Is(err, fs.ErrorAmbiguousPath):
		return exitcode.AmbiguousPath
	case errors.Is(err, fs.ErrorInvalidDestination):
		return exitcode.InvalidDestination
	case fserrors.IsFatalError(err):
		return exitcode.FatalError
	case errors.Is(err, fs.ErrorCopyIncomplete):
		return exitcode.CopyIncomplete
	case fserrors.IsRetryError(err):
		return exitcode.RetryError
	case fserrors.IsNoRetryError(err):
		return exitcode.NoRetryError
	}
	return exitcode.UncategorizedError
}

func resolveExitCode(err error) {
	os.Exit(exitCode(err))
}

// Main runs drivedup interpreting flags and commands out of os.Args
func Main() {
	if err := Root.Execute(); err != nil {
		log.Printf("Fatal error: %v", err)
		os.Exit(exitcode.UsageError)
	}
}
