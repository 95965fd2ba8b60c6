// Package sandbox evaluates untrusted JavaScript solutions against single
// test cases. Every call starts from a fresh evaluation context.
package sandbox

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const sourceName = "solution.js"

var (
	caseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codepractice",
		Subsystem: "sandbox",
		Name:      "case_duration_seconds",
		Help:      "Duration of single test case evaluations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"runner"})

	caseResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codepractice",
		Subsystem: "sandbox",
		Name:      "case_results_total",
		Help:      "Test case evaluations by result",
	}, []string{"runner", "result"})
)

// Case is one test case: a JSON argument list and the JSON expected return value.
type Case struct {
	Input    string
	Expected string
}

// Outcome is the result of a test case that ran without error.
type Outcome struct {
	Passed   bool
	Duration time.Duration
}

// Runner evaluates source against one test case. A non-nil error is always
// a *Error describing why the case could not be judged.
type Runner interface {
	Run(ctx context.Context, source string, tc Case) (Outcome, error)
}

func observe(runner string, started time.Time, outcome Outcome, err error) {
	caseDuration.WithLabelValues(runner).Observe(time.Since(started).Seconds())

	result := "failed"
	switch {
	case err != nil:
		result = string(AsError(err).Code)
	case outcome.Passed:
		result = "passed"
	}
	caseResults.WithLabelValues(runner, result).Inc()
}
