package profile

import (
	"fmt"
	"sync"

	"github.com/wirahadi/graphprep/pkg/errs"
)

// Adapter owns one Runtime per worker thread: the scripting runtime is
// not reentrant, so every worker gets an independent instance, and the
// setup hook runs once on a designated instance before fan-out.
type Adapter struct {
	newRuntime func() Runtime

	mu         sync.Mutex
	perWorker  map[int]Runtime
	constants  Constants
	setupOnce  sync.Once
	setupErr   error
}

func NewAdapter(newRuntime func() Runtime) *Adapter {
	return &Adapter{
		newRuntime: newRuntime,
		perWorker:  make(map[int]Runtime),
	}
}

// Setup loads a designated runtime instance and runs Setup() on it once,
// caching the resulting Constants for every worker. It must be called
// before any call to RuntimeFor.
func (a *Adapter) Setup() (Constants, error) {
	a.setupOnce.Do(func() {
		designated := a.newRuntime()
		constants, err := designated.Setup()
		if err != nil {
			a.setupErr = errs.Profile(err, "profile setup failed")
			return
		}
		a.constants = constants
	})
	return a.constants, a.setupErr
}

// RuntimeFor returns the thread-local Runtime for the given worker id,
// constructing it lazily on first use. Callers must use a stable,
// disjoint workerID per goroutine (e.g. the worker pool's own index) --
// the Adapter does not serialize calls against a single id.
func (a *Adapter) RuntimeFor(workerID int) (Runtime, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rt, ok := a.perWorker[workerID]; ok {
		return rt, nil
	}
	rt := a.newRuntime()
	if _, err := rt.Setup(); err != nil {
		return nil, errs.Profile(err, "profile setup failed for worker %d", workerID)
	}
	a.perWorker[workerID] = rt
	return rt, nil
}

func (a *Adapter) String() string {
	return fmt.Sprintf("profile.Adapter{workers=%d}", len(a.perWorker))
}
