package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv, when truthy, makes the binaries return before opening any
// connection. Test binaries set it through the pos/testing package.
const TestModeEnv = "POS_TEST_MODE"

var testMode = sync.OnceValue(readTestMode)

func readTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}

// InTestMode reports whether runtime side effects should be skipped. The
// environment is read once per process.
func InTestMode() bool {
	return testMode()
}

// RefreshTestMode re-reads the environment after it was changed.
func RefreshTestMode() {
	testMode = sync.OnceValue(readTestMode)
}
