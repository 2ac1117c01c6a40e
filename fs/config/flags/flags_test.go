package flags

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvironment(t *testing.T) {
	t.Setenv("DRIVEDUP_LOW_LEVEL_RETRIES", "3")
	t.Setenv("DRIVEDUP_DRY_RUN", "true")
	t.Setenv("DRIVEDUP_TIMEOUT", "10s")

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var (
		retries int
		dryRun  bool
		timeout time.Duration
		name    string
	)
	IntVarP(flagSet, &retries, "low-level-retries", "", 10, "")
	BoolVarP(flagSet, &dryRun, "dry-run", "n", false, "")
	DurationVarP(flagSet, &timeout, "timeout", "", time.Minute, "")
	StringVarP(flagSet, &name, "error-log", "", "", "")
	require.NoError(t, Check())

	assert.Equal(t, 3, retries)
	assert.True(t, dryRun)
	assert.Equal(t, 10*time.Second, timeout)
	assert.Equal(t, "", name)
	assert.Equal(t, "3", flagSet.Lookup("low-level-retries").DefValue)

	// command line beats the environment
	require.NoError(t, flagSet.Parse([]string{"--low-level-retries", "5"}))
	assert.Equal(t, 5, retries)
}

func TestFromEnvironmentBad(t *testing.T) {
	defer func() { errs = nil }()
	t.Setenv("DRIVEDUP_TPSLIMIT", "potato")

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var tps float64
	Float64VarP(flagSet, &tps, "tpslimit", "", 0, "")

	err := Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DRIVEDUP_TPSLIMIT")
}
