package systems

import (
	"sync"

	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

type JobSystem struct {
	numWorkers int
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup

	mu       sync.RWMutex
	shutdown bool
}

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, core.ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, core.ErrNegativeChannelSize
	}

	jq := make(chan metadata.JobTask, channelSize)
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   jq,
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	core.LogDebug("running %s job (%s priority)", job.JobType, job.Priority)
	result, err := job.OnStart(job.InputParams)
	if err != nil {
		core.LogError("%s job (%s priority) failed: %s", job.JobType, job.Priority, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
	} else if job.OnComplete != nil {
		job.OnComplete(result)
	}

	// Call the completion callback if set
	if job.OnCompletionCallback != nil {
		job.OnCompletionCallback()
	}
}

/**
 * @brief Shuts the job system down. Queued jobs still run before it returns.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.shutdown {
		js.mu.Unlock()
		return nil
	}
	js.shutdown = true
	close(js.jobQueue)
	js.mu.Unlock()

	js.wg.Wait()
	return nil
}

// AddWorkNonBlocking queues the job from a new goroutine and returns immediately
func (js *JobSystem) AddWorkNonBlocking(jt metadata.JobTask) {
	go js.Submit(jt)
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while the queue is full.
 * @param info The description of the job to be executed.
 * @return false if the job system was already shut down.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) bool {
	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.shutdown {
		core.LogWarn("job submitted after job system shutdown, dropped")
		return false
	}
	js.jobQueue <- jt
	return true
}

// RunAll queues every job and returns once all of them finished. It must not be
// called from inside a job.
func (js *JobSystem) RunAll(jobs []metadata.JobTask) {
	var done sync.WaitGroup
	for _, job := range jobs {
		done.Add(1)
		cb := job.OnCompletionCallback
		job.OnCompletionCallback = func() {
			if cb != nil {
				cb()
			}
			done.Done()
		}
		if !js.Submit(job) {
			done.Done()
		}
	}
	done.Wait()
}
