// Package metrics provides pool instrumentation: dispatch and execution counters,
// processing and idle timers, and free-form user counters.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// duration keys accepted by StartTimer and AddDuration
const (
	DurationProc = "proc" // time spent running work
	DurationIdle = "idle" // time workers spent parked
)

// Value holds the metrics of a single pool. All methods are safe for concurrent use.
type Value struct {
	startTime time.Time

	dispatched atomic.Int64 // work handed directly to a parked worker
	queued     atomic.Int64 // work appended to the pending queue
	executed   atomic.Int64 // work items completed by workers
	panics     atomic.Int64 // work items recovered from a panic

	procTime atomic.Int64
	idleTime atomic.Int64

	userLock sync.RWMutex
	userData map[string]int
}

// Stats is a snapshot of Value counters
type Stats struct {
	Dispatched     int
	Queued         int
	Executed       int
	Panics         int
	ProcessingTime time.Duration
	IdleTime       time.Duration
	TotalTime      time.Duration
}

// New makes a metrics value, total time is counted from this call
func New() *Value {
	return &Value{startTime: time.Now(), userData: map[string]int{}}
}

// IncDispatched counts work delivered straight to an idle worker
func (m *Value) IncDispatched() { m.dispatched.Add(1) }

// IncQueued counts work stored in the pending queue
func (m *Value) IncQueued() { m.queued.Add(1) }

// IncExecuted counts work completed by a worker
func (m *Value) IncExecuted() { m.executed.Add(1) }

// IncPanics counts work which panicked
func (m *Value) IncPanics() { m.panics.Add(1) }

// AddDuration adds d to the named duration. Unknown keys are ignored.
func (m *Value) AddDuration(key string, d time.Duration) {
	switch key {
	case DurationProc:
		m.procTime.Add(int64(d))
	case DurationIdle:
		m.idleTime.Add(int64(d))
	}
}

// GetDuration returns accumulated duration for the key
func (m *Value) GetDuration(key string) time.Duration {
	switch key {
	case DurationProc:
		return time.Duration(m.procTime.Load())
	case DurationIdle:
		return time.Duration(m.idleTime.Load())
	}
	return 0
}

// StartTimer starts measuring the named duration and returns the function stopping it
func (m *Value) StartTimer(key string) func() {
	st := time.Now()
	return func() { m.AddDuration(key, time.Since(st)) }
}

// GetStats returns a snapshot of all counters
func (m *Value) GetStats() Stats {
	return Stats{
		Dispatched:     int(m.dispatched.Load()),
		Queued:         int(m.queued.Load()),
		Executed:       int(m.executed.Load()),
		Panics:         int(m.panics.Load()),
		ProcessingTime: time.Duration(m.procTime.Load()),
		IdleTime:       time.Duration(m.idleTime.Load()),
		TotalTime:      time.Since(m.startTime),
	}
}

// String returns stats in key:value form
func (s Stats) String() string {
	return fmt.Sprintf("[dispatched:%d, queued:%d, executed:%d, panics:%d, proc:%v, idle:%v, total:%v]",
		s.Dispatched, s.Queued, s.Executed, s.Panics,
		s.ProcessingTime.Round(time.Microsecond), s.IdleTime.Round(time.Microsecond), s.TotalTime.Round(time.Microsecond))
}

// Add increments user value for a given key and returns new value
func (m *Value) Add(key string, delta int) int {
	m.userLock.Lock()
	defer m.userLock.Unlock()
	m.userData[key] += delta
	return m.userData[key]
}

// Inc increments user value for given key by one
func (m *Value) Inc(key string) int {
	return m.Add(key, 1)
}

// Set user value for given key
func (m *Value) Set(key string, val int) {
	m.userLock.Lock()
	defer m.userLock.Unlock()
	m.userData[key] = val
}

// Get returns user value for given key
func (m *Value) Get(key string) int {
	m.userLock.RLock()
	defer m.userLock.RUnlock() // nolint gocritic

	return m.userData[key]
}

// String returns stats followed by sorted key:vals of user counters
func (m *Value) String() string {
	m.userLock.RLock()
	defer m.userLock.RUnlock()

	sortedKeys := func() (res []string) {
		for k := range m.userData {
			res = append(res, k)
		}
		sort.Strings(res)
		return res
	}()

	udata := make([]string, len(sortedKeys))
	for i, k := range sortedKeys {
		udata[i] = fmt.Sprintf("%s:%d", k, m.userData[k])
	}

	um := ""
	if len(udata) > 0 {
		um = fmt.Sprintf(" [%s]", strings.Join(udata, ", "))
	}
	return m.GetStats().String() + um
}
