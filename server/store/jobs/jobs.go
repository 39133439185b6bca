package jobs

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/store"
)

type JobStore struct {
	table *store.Table
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *JobStore {
	return &JobStore{
		table: store.NewTable(db, logFactory, "jobs", "job"),
	}
}

// Create a new job.
// Returns store.ErrAlreadyExists if a job with the same name already exists in the pipeline.
func (d *JobStore) Create(ctx context.Context, txOrNil *store.Tx, job *models.Job) error {
	id, err := d.table.Create(ctx, txOrNil, job)
	if err != nil {
		return err
	}
	job.ID = models.JobID(id)
	return nil
}

// Read an existing job, looking it up by id.
// Returns models.ErrNotFound if the job does not exist.
func (d *JobStore) Read(ctx context.Context, txOrNil *store.Tx, id models.JobID) (*models.Job, error) {
	job := &models.Job{}
	return job, d.table.ReadByID(ctx, txOrNil, uint64(id), job)
}

// ReadByName reads an existing job, looking it up by pipeline and name.
// Returns models.ErrNotFound if the job does not exist.
func (d *JobStore) ReadByName(ctx context.Context, txOrNil *store.Tx, pipelineID models.PipelineID, name string) (*models.Job, error) {
	job := &models.Job{}
	return job, d.table.ReadWhere(ctx, txOrNil, job,
		goqu.Ex{"job_pipeline_id": pipelineID},
		goqu.Ex{"job_name": name})
}

// ListByPipelineID lists all jobs belonging to a pipeline.
func (d *JobStore) ListByPipelineID(ctx context.Context, txOrNil *store.Tx, pipelineID models.PipelineID) ([]*models.Job, error) {
	jobsSelect := d.table.Dialect().From(d.table.TableName()).
		Select(&models.Job{}).
		Where(goqu.Ex{"job_pipeline_id": pipelineID})
	var jobs []*models.Job
	pagination := models.NewPagination(500, nil)
	_, err := d.table.ListIn(ctx, txOrNil, &jobs, pagination, jobsSelect)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
