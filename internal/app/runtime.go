package app

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// TestModeEnv switches every entrypoint into test mode when truthy.
const TestModeEnv = "ERP_TEST_MODE"

// RunMode tells an entrypoint whether it may open connections and listeners.
type RunMode int

const (
	// ModeServe is the normal mode.
	ModeServe RunMode = iota
	// ModeTest skips startup side effects so test binaries that import a
	// command package never dial Postgres or Redis.
	ModeTest
)

func (m RunMode) String() string {
	if m == ModeTest {
		return "test"
	}
	return "serve"
}

// ResolveRunMode derives the mode from lookup, normally os.LookupEnv. Any
// value strconv.ParseBool accepts as true enables test mode.
func ResolveRunMode(lookup func(string) (string, bool)) RunMode {
	raw, ok := lookup(TestModeEnv)
	if !ok {
		return ModeServe
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil || !enabled {
		return ModeServe
	}
	return ModeTest
}

var processRunMode = sync.OnceValue(func() RunMode {
	return ResolveRunMode(os.LookupEnv)
})

// InTestMode reports whether the process started in test mode. The
// environment is read once.
func InTestMode() bool {
	return processRunMode() == ModeTest
}
