package jobs

import (
	"context"
	"sync"
)

// Job is a long-running loop that exits when its context does.
type Job interface {
	Start(ctx context.Context)
}

type Manager struct {
	jobs []Job
}

func New() *Manager {
	return &Manager{}
}

func (m *Manager) Register(jobs ...Job) {
	m.jobs = append(m.jobs, jobs...)
}

// Start blocks until ctx is cancelled and every job has returned, so
// in-flight settlement calls finish or fail naturally at shutdown.
func (m *Manager) Start(ctx context.Context) {
	var wg sync.WaitGroup

	for _, job := range m.jobs {
		wg.Add(1)

		go func(j Job) {
			defer wg.Done()
			j.Start(ctx)
		}(job)
	}

	<-ctx.Done()
	wg.Wait()
}
