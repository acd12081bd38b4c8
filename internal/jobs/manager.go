package jobs

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/vrsandeep/storydesk/internal/api"
	"github.com/vrsandeep/storydesk/internal/config"
	"github.com/vrsandeep/storydesk/internal/resources"
	"github.com/vrsandeep/storydesk/internal/session"
)

// JobContext provides the dependencies a job runs with.
// The core.App struct implements this interface.
type JobContext interface {
	Config() *config.Config
	Session() session.Store
	Client() *api.Client
	Lookups() *resources.Lookups
	JobManager() *JobManager
}

type jobTask func(ctx JobContext)

type JobStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	status  map[string]*JobStatus
	running bool
}

func NewManager() *JobManager {
	return &JobManager{
		jobs:   make(map[string]jobTask),
		status: make(map[string]*JobStatus),
	}
}

func (jm *JobManager) Register(id, name string, task jobTask) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs[id] = task
	jm.status[id] = &JobStatus{ID: id, Name: name, Status: "idle"}
}

// RunJob starts job id in the background. Only one job runs at a time.
func (jm *JobManager) RunJob(id string, ctx JobContext) error {
	done, err := jm.start(id, ctx)
	if err != nil {
		return err
	}
	go done()
	return nil
}

// RunJobSync runs job id and returns when it finished.
func (jm *JobManager) RunJobSync(id string, ctx JobContext) error {
	done, err := jm.start(id, ctx)
	if err != nil {
		return err
	}
	done()
	return nil
}

func (jm *JobManager) start(id string, ctx JobContext) (func(), error) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if jm.running {
		return nil, fmt.Errorf("a job is already running")
	}
	task, ok := jm.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job '%s' not found", id)
	}

	jm.running = true
	status := jm.status[id]
	status.Status = "running"
	status.StartTime = time.Now()
	status.EndTime = time.Time{}
	status.Message = "Job started..."

	return func() {
		defer func() {
			r := recover()
			jm.mu.Lock()
			if r != nil {
				log.Printf("Job '%s' panicked: %v", id, r)
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
			}
			status.EndTime = time.Now()
			if status.Status == "running" {
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			jm.running = false
			jm.mu.Unlock()
		}()
		task(ctx)
	}, nil
}

// Fail marks the running job id as failed with msg. Tasks call it instead
// of returning an error.
func (jm *JobManager) Fail(id, msg string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if s, ok := jm.status[id]; ok && s.Status == "running" {
		s.Status = "failed"
		s.Message = msg
	}
}

// GetStatus returns a snapshot of every registered job, ordered by id.
func (jm *JobManager) GetStatus() []JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	statuses := make([]JobStatus, 0, len(jm.status))
	for _, s := range jm.status {
		statuses = append(statuses, *s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ID < statuses[j].ID })
	return statuses
}
