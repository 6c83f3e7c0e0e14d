package research

import (
	"context"
	"time"
)

// PipelineJob runs the research pipeline from the scheduler
type PipelineJob struct {
	service *Service
	timeout time.Duration
}

// NewPipelineJob creates the job. A zero timeout defaults to 30 minutes.
func NewPipelineJob(service *Service, timeout time.Duration) *PipelineJob {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &PipelineJob{service: service, timeout: timeout}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "research_pipeline"
}

// Run executes one pipeline run
func (j *PipelineJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.service.Run(ctx)
	return err
}
