package scm

import (
	"fmt"
	"sync"

	"github.com/conveyorci/conveyor/common/gerror"
)

type Registry struct {
	scmByName map[string]SCM
	mutex     sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		scmByName: make(map[string]SCM),
	}
}

// Register an SCM. If an SCM with that name is already registered then this function will panic.
func (s *Registry) Register(scm SCM) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.scmByName[scm.Name()]; ok {
		panic(fmt.Sprintf("Registry: attempt to register SCM %q more than once", scm.Name()))
	}

	s.scmByName[scm.Name()] = scm
}

// Get the registered SCM by name. If an SCM with the specified name does not
// exist an error will be returned.
func (s *Registry) Get(name string) (SCM, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	scm, ok := s.scmByName[name]
	if !ok {
		return nil, gerror.NewErrNotFound("Not Found").IDetail("scm", name)
	}
	return scm, nil
}
