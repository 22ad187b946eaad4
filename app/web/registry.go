package web

import (
	"sync"

	"github.com/umputun/thresh/app/witness"
)

// activeJobs is a thread safe registry of running jobs. A name is reserved before the job's witness
// is started, so two jobs with the same name never run (and never write the same log) at once.
type activeJobs struct {
	lock   sync.Mutex
	byName map[string]*witness.Witness // nil value while the job is starting
	byID   map[string]*witness.Witness
}

func newActiveJobs() *activeJobs {
	return &activeJobs{byName: make(map[string]*witness.Witness), byID: make(map[string]*witness.Witness)}
}

// Reserve job name, fail if already taken
func (a *activeJobs) Reserve(name string) bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	if _, found := a.byName[name]; found {
		return false
	}
	a.byName[name] = nil
	return true
}

// Attach started witness to its reserved name
func (a *activeJobs) Attach(w *witness.Witness) {
	a.lock.Lock()
	defer a.lock.Unlock()
	a.byName[w.Name()] = w
	a.byID[w.ID()] = w
}

// Release job name. Safe to call multiple times
func (a *activeJobs) Release(name string) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if w := a.byName[name]; w != nil {
		delete(a.byID, w.ID())
	}
	delete(a.byName, name)
}

// Get returns running job's witness by job id
func (a *activeJobs) Get(id string) (*witness.Witness, bool) {
	a.lock.Lock()
	defer a.lock.Unlock()
	w, ok := a.byID[id]
	return w, ok
}

// Busy checks if the name is reserved by a starting or running job
func (a *activeJobs) Busy(name string) bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	_, ok := a.byName[name]
	return ok
}

// Len returns number of reserved names
func (a *activeJobs) Len() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return len(a.byName)
}
