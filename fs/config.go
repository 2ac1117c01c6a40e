package fs

import (
	"context"
	"strings"
	"time"
)

// Version of drivedup
var Version = "v0.1.0-DEV"

// ConfigInfo is the global config for a run
type ConfigInfo struct {
	LogLevel           LogLevel
	UseJSONLog         bool
	LowLevelRetries    int
	DryRun             bool
	ListFiles          bool
	AbortOnFolderError bool
	ErrorLog           string
	MetricsFile        string
	TPSLimit           float64
	TPSLimitBurst      int
	UserAgent          string
	ConnectTimeout     time.Duration
	Timeout            time.Duration
	DumpHeaders        bool
	DumpBodies         bool
	DumpAuth           bool
}

// NewConfig creates a new config with everything set to the default
// value.
func NewConfig() *ConfigInfo {
	c := new(ConfigInfo)

	// Set any values which aren't the zero for the type
	c.LogLevel = LogLevelNotice
	c.LowLevelRetries = 10
	c.TPSLimitBurst = 1
	c.UserAgent = "drivedup/" + Version
	c.ConnectTimeout = 60 * time.Second
	c.Timeout = 5 * 60 * time.Second

	return c
}

type configContextKeyType struct{}

// Context key for config
var configContextKey = configContextKeyType{}

// globalConfig for drivedup
var globalConfig = NewConfig()

// GetConfig returns the global or context sensitive context
func GetConfig(ctx context.Context) *ConfigInfo {
	if ctx == nil {
		return globalConfig
	}
	c := ctx.Value(configContextKey)
	if c == nil {
		return globalConfig
	}
	return c.(*ConfigInfo)
}

// AddConfig returns a mutable config structure based on a shallow
// copy of that found in ctx and returns a new context with that added
// to it.
func AddConfig(ctx context.Context) (context.Context, *ConfigInfo) {
	c := GetConfig(ctx)
	cCopy := new(ConfigInfo)
	*cCopy = *c
	newCtx := context.WithValue(ctx, configContextKey, cCopy)
	return newCtx, cCopy
}

// OptionToEnv converts a backend and option name, e.g. ("drive",
// "root_folder_id") into an environment name
// "DRIVEDUP_DRIVE_ROOT_FOLDER_ID"
func OptionToEnv(prefix, name string) string {
	return "DRIVEDUP_" + strings.ToUpper(strings.Replace(prefix+"_"+name, "-", "_", -1))
}

// ConfigToEnv converts a global flag name, e.g. "low-level-retries"
// into an environment name "DRIVEDUP_LOW_LEVEL_RETRIES"
func ConfigToEnv(name string) string {
	return "DRIVEDUP_" + strings.ToUpper(strings.Replace(name, "-", "_", -1))
}
