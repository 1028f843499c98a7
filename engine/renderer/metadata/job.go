package metadata

/** Definition for jobs. Returns an error to route the job to OnFailure. */
type JobStart func(params interface{}) (interface{}, error)

/** Definition for completion of a job. */
type JobOnComplete func(result interface{})

/** @brief Describes a type of job */
type JobType int

const (
	/**
	 * @brief A general job that does not have any specific thread requirements.
	 * This means it matters little which job thread this job runs on.
	 */
	JOB_TYPE_GENERAL JobType = 0x02
	/** @brief Records the command buffers of one command graph for the current frame. */
	JOB_TYPE_RECORD JobType = 0x04
	/**
	 * @brief Jobs using GPU resources, such as copies into mapped device memory
	 * followed by a queue submission.
	 */
	JOB_TYPE_GPU_RESOURCE JobType = 0x08
)

func (jt JobType) String() string {
	switch jt {
	case JOB_TYPE_GENERAL:
		return "general"
	case JOB_TYPE_RECORD:
		return "record"
	case JOB_TYPE_GPU_RESOURCE:
		return "gpu resource"
	}
	return "unknown"
}

/**
 * @brief How urgent a job is. Reported in the job logs; the job system runs
 * jobs in submission order.
 */
type JobPriority int

const (
	/** @brief The lowest-priority job, used for things that can wait to be done if need be, such as log flushing. */
	JOB_PRIORITY_LOW JobPriority = iota
	/** @brief A normal-priority job. Should be used for medium-priority tasks such as loading assets. */
	JOB_PRIORITY_NORMAL
	/** @brief The highest-priority job. Should be used sparingly, and only for time-critical operations.*/
	JOB_PRIORITY_HIGH
)

func (jp JobPriority) String() string {
	switch jp {
	case JOB_PRIORITY_LOW:
		return "low"
	case JOB_PRIORITY_NORMAL:
		return "normal"
	case JOB_PRIORITY_HIGH:
		return "high"
	}
	return "unknown"
}

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	/** @brief The type of job. */
	JobType JobType
	/** @brief The priority of this job. */
	Priority JobPriority
	/** @brief Data to be passed to OnStart. */
	InputParams interface{}
	/** @brief Invoked when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked with the result of OnStart when it succeeds. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked with the error of OnStart when it fails. Optional. */
	OnFailure JobOnComplete
	/** @brief Invoked after OnComplete or OnFailure. Optional. */
	OnCompletionCallback func()
}
