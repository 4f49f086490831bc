// Package health runs component checks for a shopctl session.
//
// Checks run concurrently, each under its own timeout. A failing critical
// component makes the whole report unhealthy; a failing optional one only
// degrades it.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"smartshop/internal/kv"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is degraded but functional.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusUnknown indicates the component has not been checked.
	StatusUnknown Status = "unknown"
)

// DefaultTimeout bounds a check registered without one.
const DefaultTimeout = 5 * time.Second

// CheckResult represents the result of a health check.
type CheckResult struct {
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Check is a function that performs a health check.
type Check func(ctx context.Context) CheckResult

// Component represents a health-checkable component.
type Component struct {
	Name     string
	Critical bool // If true, failure makes overall status unhealthy
	Check    Check
	Timeout  time.Duration
}

// Checker manages health checks.
type Checker struct {
	mu         sync.RWMutex
	components map[string]*Component
}

// NewChecker creates a new Checker.
func NewChecker() *Checker {
	return &Checker{components: make(map[string]*Component)}
}

// Register registers a health check component, replacing one of the same name.
func (c *Checker) Register(component *Component) {
	if component.Timeout <= 0 {
		component.Timeout = DefaultTimeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[component.Name] = component
}

// RegisterFunc registers a simple health check function.
func (c *Checker) RegisterFunc(name string, critical bool, check Check) {
	c.Register(&Component{Name: name, Critical: critical, Check: check})
}

// Report is the outcome of one Check run.
type Report struct {
	Status     Status                 `json:"status"`
	Components map[string]CheckResult `json:"components"`
	Checked    time.Time              `json:"checked"`
}

// Names returns the component names in order.
func (r Report) Names() []string {
	names := make([]string, 0, len(r.Components))
	for n := range r.Components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Check runs all registered health checks.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	components := make([]*Component, 0, len(c.components))
	for _, comp := range c.components {
		components = append(components, comp)
	}
	c.mu.RUnlock()

	report := Report{Components: make(map[string]CheckResult, len(components)), Checked: time.Now()}
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, comp := range components {
		wg.Add(1)
		go func(comp *Component) {
			defer wg.Done()
			result := run(ctx, comp)
			mu.Lock()
			report.Components[comp.Name] = result
			mu.Unlock()
		}(comp)
	}
	wg.Wait()

	report.Status = c.overall(report.Components)
	return report
}

func run(ctx context.Context, comp *Component) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, comp.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan CheckResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- CheckResult{Status: StatusUnhealthy, Message: "check panicked", Error: fmt.Sprint(r)}
			}
		}()
		done <- comp.Check(checkCtx)
	}()

	var result CheckResult
	select {
	case result = <-done:
	case <-checkCtx.Done():
		result = CheckResult{Status: StatusUnhealthy, Message: "check timed out", Error: checkCtx.Err().Error()}
	}
	result.Duration = time.Since(start)
	return result
}

func (c *Checker) overall(results map[string]CheckResult) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := StatusHealthy
	for name, result := range results {
		comp := c.components[name]
		if comp == nil {
			continue
		}
		switch result.Status {
		case StatusUnhealthy:
			if comp.Critical {
				return StatusUnhealthy
			}
			status = StatusDegraded
		case StatusDegraded:
			status = StatusDegraded
		case StatusUnknown:
			if comp.Critical && status == StatusHealthy {
				status = StatusUnknown
			}
		}
	}
	return status
}

func failed(message string, err error) CheckResult {
	return CheckResult{Status: StatusUnhealthy, Message: message, Error: err.Error()}
}

// PingCheck wraps a connectivity probe such as a database ping.
func PingCheck(name string, ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return failed(name+" unreachable", err)
		}
		return CheckResult{Status: StatusHealthy, Message: name + " reachable"}
	}
}

// StoreCheck lists the keys of a kv store.
func StoreCheck(store kv.Store) Check {
	return func(ctx context.Context) CheckResult {
		keys, err := store.Keys()
		if err != nil {
			return failed("store unreadable", err)
		}
		return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf("%d keys", len(keys))}
	}
}

// WritableCheck creates and removes a scratch file in dir.
func WritableCheck(dir string) Check {
	return func(ctx context.Context) CheckResult {
		f, err := os.CreateTemp(dir, ".health-*")
		if err != nil {
			return failed("directory not writable", err)
		}
		name := f.Name()
		err = errors.Join(f.Close(), os.Remove(name))
		if err != nil {
			return failed("scratch file not removed", err)
		}
		return CheckResult{Status: StatusHealthy, Message: dir + " writable"}
	}
}

// FailureCheck reports degraded while failures returns a non-zero count.
func FailureCheck(what string, failures func() uint64) Check {
	return func(ctx context.Context) CheckResult {
		if n := failures(); n > 0 {
			return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf("%d %s failures", n, what)}
		}
		return CheckResult{Status: StatusHealthy, Message: "no " + what + " failures"}
	}
}
