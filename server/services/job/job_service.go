package job

import (
	"context"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/store"
)

type JobService struct {
	db       *store.DB
	jobStore store.JobStore
	logger.Log
}

func NewJobService(
	db *store.DB,
	jobStore store.JobStore,
	logFactory logger.LogFactory,
) *JobService {
	return &JobService{
		db:       db,
		jobStore: jobStore,
		Log:      logFactory("JobService"),
	}
}

// Read an existing job, looking it up by id.
// Returns models.ErrNotFound if the job does not exist.
func (s *JobService) Read(ctx context.Context, txOrNil *store.Tx, id models.JobID) (*models.Job, error) {
	return s.jobStore.Read(ctx, txOrNil, id)
}

// ReadByName reads an existing job, looking it up by pipeline and name.
// Returns models.ErrNotFound if the job does not exist.
func (s *JobService) ReadByName(ctx context.Context, txOrNil *store.Tx, pipelineID models.PipelineID, name string) (*models.Job, error) {
	return s.jobStore.ReadByName(ctx, txOrNil, pipelineID, name)
}

// ListByPipelineID lists all jobs belonging to a pipeline.
func (s *JobService) ListByPipelineID(ctx context.Context, txOrNil *store.Tx, pipelineID models.PipelineID) ([]*models.Job, error) {
	return s.jobStore.ListByPipelineID(ctx, txOrNil, pipelineID)
}
