package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kolkov/ksync/internal/kernel/resource"
	"github.com/kolkov/ksync/sys"
)

// Scenario is a declarative synchronization workload: a set of resources
// and, per task, a script of syscalls to replay.
type Scenario struct {
	Title     string         `toml:"title"`
	Detect    bool           `toml:"detect"`
	TimeoutMS int64          `toml:"timeout_ms"`
	Resources []ResourceSpec `toml:"resources"`
	Tasks     []TaskSpec     `toml:"tasks"`
}

// ResourceSpec declares one resource, created before any task runs.
// Resource ids are assigned in declaration order, per kind.
type ResourceSpec struct {
	Kind  string `toml:"kind"`  // mutex | spin | semaphore | condvar
	Count int    `toml:"count"` // semaphore initial units
}

// TaskSpec is one task's script. Each op is "verb [args...]":
//
//	sleep MS | lock ID | unlock ID | down ID | up ID |
//	signal CV | wait CV MUTEX | detect 0|1
type TaskSpec struct {
	Name string   `toml:"name"`
	Ops  []string `toml:"ops"`
}

// Event is one executed operation in the report journal.
type Event struct {
	Task string
	Op   string
	Code int64
}

// Report is the outcome of a scenario run.
type Report struct {
	Title   string
	Events  []Event
	Blocked []string // tasks still suspended when the watchdog fired
	Tables  []AccountRow
}

// AccountRow is one task's final accounting for one resource class.
type AccountRow struct {
	Task      string
	Class     string
	Need      resource.Vector
	Alloc     resource.Vector
	Available resource.Vector
}

// LoadScenario parses and validates a TOML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return nil, err
	}
	if len(s.Tasks) == 0 {
		return nil, fmt.Errorf("scenario %q has no tasks", s.Title)
	}
	for _, r := range s.Resources {
		switch r.Kind {
		case "mutex", "spin", "semaphore", "condvar":
		default:
			return nil, fmt.Errorf("unknown resource kind %q", r.Kind)
		}
	}
	for _, task := range s.Tasks {
		for _, op := range task.Ops {
			if _, err := parseOp(op); err != nil {
				return nil, fmt.Errorf("task %q: %w", task.Name, err)
			}
		}
	}
	if s.TimeoutMS == 0 {
		s.TimeoutMS = 5000
	}
	return &s, nil
}

type step struct {
	verb string
	a, b int
}

func parseOp(op string) (step, error) {
	fields := strings.Fields(op)
	if len(fields) == 0 {
		return step{}, fmt.Errorf("empty op")
	}
	argc := map[string]int{
		"sleep": 1, "lock": 1, "unlock": 1, "down": 1, "up": 1,
		"signal": 1, "wait": 2, "detect": 1,
	}
	want, ok := argc[fields[0]]
	if !ok {
		return step{}, fmt.Errorf("unknown op %q", fields[0])
	}
	if len(fields)-1 != want {
		return step{}, fmt.Errorf("op %q wants %d args, got %d", fields[0], want, len(fields)-1)
	}
	s := step{verb: fields[0]}
	var err error
	if s.a, err = strconv.Atoi(fields[1]); err != nil {
		return step{}, fmt.Errorf("op %q: bad argument %q", fields[0], fields[1])
	}
	if want == 2 {
		if s.b, err = strconv.Atoi(fields[2]); err != nil {
			return step{}, fmt.Errorf("op %q: bad argument %q", fields[0], fields[2])
		}
	}
	return s, nil
}

func (st step) execute(ctx context.Context) int64 {
	switch st.verb {
	case "sleep":
		return sys.Sleep(ctx, int64(st.a))
	case "lock":
		return sys.MutexLock(ctx, st.a)
	case "unlock":
		return sys.MutexUnlock(ctx, st.a)
	case "down":
		return sys.SemaphoreDown(ctx, st.a)
	case "up":
		return sys.SemaphoreUp(ctx, st.a)
	case "signal":
		return sys.CondvarSignal(ctx, st.a)
	case "wait":
		return sys.CondvarWait(ctx, st.a, st.b)
	case "detect":
		return sys.EnableDeadlockDetect(ctx, st.a)
	default:
		panic("unreachable: ops are validated at load time")
	}
}

// Run executes the scenario on a fresh kernel and gathers the report.
//
// Tasks that are still suspended when the watchdog fires (a real deadlock
// or a wait with no matching signal) are listed as blocked; their
// goroutines are abandoned with the kernel.
func (s *Scenario) Run() *Report {
	k := sys.NewKernel()
	defer k.Shutdown()
	p := k.NewProcess()

	report := &Report{Title: s.Title}
	var mu sync.Mutex

	finished := make([]bool, len(s.Tasks))
	allDone := make(chan struct{})
	var wg sync.WaitGroup

	// Resources are created by a setup task so scripts only replay the
	// interesting syscalls.
	setup := make(chan struct{})
	p.Spawn(func(ctx context.Context) {
		defer close(setup)
		if s.Detect {
			sys.EnableDeadlockDetect(ctx, 1)
		}
		for _, r := range s.Resources {
			switch r.Kind {
			case "mutex":
				sys.MutexCreate(ctx, true)
			case "spin":
				sys.MutexCreate(ctx, false)
			case "semaphore":
				sys.SemaphoreCreate(ctx, r.Count)
			case "condvar":
				sys.CondvarCreate(ctx)
			}
		}
	})
	<-setup

	for i, spec := range s.Tasks {
		i, spec := i, spec
		wg.Add(1)
		p.Spawn(func(ctx context.Context) {
			defer wg.Done()
			for _, op := range spec.Ops {
				st, _ := parseOp(op) // validated at load time
				code := st.execute(ctx)
				mu.Lock()
				report.Events = append(report.Events, Event{Task: spec.Name, Op: op, Code: code})
				mu.Unlock()
			}
			mu.Lock()
			finished[i] = true
			mu.Unlock()
		})
	}

	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
	case <-time.After(time.Duration(s.TimeoutMS) * time.Millisecond):
		mu.Lock()
		for i, done := range finished {
			if !done {
				report.Blocked = append(report.Blocked, s.Tasks[i].Name)
			}
		}
		mu.Unlock()
	}

	report.Tables = snapshotAccounting(p, s)
	return report
}

// snapshotAccounting reads the final ledgers and available vectors. The
// scenario is settled (or cut off) by now, so this is a quiescent view.
func snapshotAccounting(p *sys.Process, s *Scenario) []AccountRow {
	classes := []resource.Class{resource.ClassMutex, resource.ClassSemaphore}

	p.Lock()
	tasks := append([]*sys.Task(nil), p.Tasks()...)
	avail := make([]resource.Vector, len(classes))
	for i, c := range classes {
		avail[i] = p.Available[c].Clone()
	}
	p.Unlock()

	var rows []AccountRow
	for i, c := range classes {
		for ti, task := range tasks {
			if ti == 0 {
				continue // setup task has no script
			}
			name := fmt.Sprintf("task%d", ti)
			if ti-1 < len(s.Tasks) {
				name = s.Tasks[ti-1].Name
			}
			snap := task.LedgerSnapshot(c)
			rows = append(rows, AccountRow{
				Task:      name,
				Class:     c.String(),
				Need:      snap.Need,
				Alloc:     snap.Allocation,
				Available: avail[i],
			})
		}
	}
	return rows
}
