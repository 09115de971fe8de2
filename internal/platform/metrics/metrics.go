package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	clientErrors    uint64
	totalDurationMs uint64

	payrollRuns       uint64
	recordsSaved      uint64
	recordsRetained   uint64
	caregiverFailures uint64
	incompleteShifts  uint64
	runDurationMs     uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	} else if status >= 400 {
		atomic.AddUint64(&c.clientErrors, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// ObserveRun counts the outcome of one payroll period run.
func (c *Collector) ObserveRun(saved, retained, failed, incomplete int, duration time.Duration) {
	atomic.AddUint64(&c.payrollRuns, 1)
	atomic.AddUint64(&c.recordsSaved, uint64(saved))
	atomic.AddUint64(&c.recordsRetained, uint64(retained))
	atomic.AddUint64(&c.caregiverFailures, uint64(failed))
	atomic.AddUint64(&c.incompleteShifts, uint64(incomplete))
	atomic.AddUint64(&c.runDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	clientErrs := atomic.LoadUint64(&c.clientErrors)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":          total,
		"errorsTotal":            errs,
		"clientErrorsTotal":      clientErrs,
		"avgDurationMs":          avg,
		"totalDurationMs":        totalMs,
		"payrollRunsTotal":       atomic.LoadUint64(&c.payrollRuns),
		"recordsSavedTotal":      atomic.LoadUint64(&c.recordsSaved),
		"recordsRetainedTotal":   atomic.LoadUint64(&c.recordsRetained),
		"caregiverFailuresTotal": atomic.LoadUint64(&c.caregiverFailures),
		"incompleteShiftsTotal":  atomic.LoadUint64(&c.incompleteShifts),
		"payrollRunDurationMs":   atomic.LoadUint64(&c.runDurationMs),
	}
}
