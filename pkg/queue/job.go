package queue

import "context"

// Job defines a queue job handler.
type Job interface {
	// Name returns the unique identifier of the job.
	Name() string

	// Type returns the type of message that the job handles.
	Type() string

	// Handle processes the job with the given payload.
	Handle(ctx context.Context, payload interface{}) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	JobType string
	Fn      func(ctx context.Context, payload interface{}) error
}

func (j JobFunc) Name() string { return j.JobName }
func (j JobFunc) Type() string { return j.JobType }

func (j JobFunc) Handle(ctx context.Context, payload interface{}) error {
	return j.Fn(ctx, payload)
}
