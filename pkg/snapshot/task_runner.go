package snapshot

import (
	"sync"

	"github.com/rs/zerolog"
)

type Task interface {
	Execute() error
}

type TaskFunc func() error

func (tf TaskFunc) Execute() error {
	return tf()
}

// TaskRunner runs scheduled tasks on a fixed number of workers.
type TaskRunner struct {
	tasks  chan Task
	wg     sync.WaitGroup
	closed chan struct{}
	log    *zerolog.Logger
}

func NewTaskRunner(log *zerolog.Logger) *TaskRunner {
	const bufferSize = 1024
	return &TaskRunner{
		tasks:  make(chan Task, bufferSize),
		closed: make(chan struct{}),
		log:    log,
	}
}

func (s *TaskRunner) Start(workerCount int) {
	s.wg.Add(workerCount)

	for range workerCount {
		go func() {
			for task := range s.tasks {
				err := task.Execute()
				if err != nil {
					s.log.Error().Err(err).Msg("Task execution failed")
				}
			}
			s.wg.Done()
		}()
	}
}

// Schedule queues a task. It reports false once the runner is stopped.
func (s *TaskRunner) Schedule(task Task) bool {
	select {
	case <-s.closed:
		return false
	default:
	}

	select {
	case <-s.closed:
		return false
	case s.tasks <- task:
		return true
	}
}

// Stop waits for queued tasks to finish and shuts the workers down.
func (s *TaskRunner) Stop() {
	close(s.closed)
	close(s.tasks)
	s.wg.Wait()
}
