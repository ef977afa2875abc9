// Package vtesting holds knobs shared by the tests of this module. They are
// read from the environment once:
//
//   - TEST_TIMEOUT_UNIT: base duration of timeouts, e.g., "400ms".
//   - TEST_USE_LOGGER: "true" or "1" makes TestLogger print to the stderr.
package vtesting

import (
	"log"
	"math"
	"os"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTimeoutUnit = time.Millisecond * 400
	defaultProcCount   = 8
)

var (
	testTimeoutUnit = defaultTimeoutUnit
	testLogger      = zap.NewNop()
)

func init() {
	v := os.Getenv("TEST_TIMEOUT_UNIT")
	if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
		testTimeoutUnit = dur
	}
	log.Printf("TEST_TIMEOUT_UNIT=%v", testTimeoutUnit)

	v = strings.ToLower(os.Getenv("TEST_USE_LOGGER"))
	if v == "true" || v == "1" {
		lg, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		testLogger = lg
	}
	log.Printf("TEST_USE_LOGGER=%v", v)
}

// TimeoutUnitTimesFactor returns factor times the timeout unit, stretched on
// machines with few processors.
func TimeoutUnitTimesFactor(factor int64) time.Duration {
	timeoutUnit := TimeoutAccordingToProcCnt(testTimeoutUnit)
	return time.Duration(int64(timeoutUnit) * factor)
}

// TimeoutAccordingToProcCnt stretches timeout by log2(8/GOMAXPROCS) when
// GOMAXPROCS is less than 8.
func TimeoutAccordingToProcCnt(timeout time.Duration) time.Duration {
	procs := runtime.GOMAXPROCS(0)
	if procs < defaultProcCount {
		timeout += timeout * time.Duration(math.Log2(float64(defaultProcCount/procs)))
	}
	return timeout
}

func TestLogger() *zap.Logger {
	return testLogger
}
