package pipelines

import (
	"context"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/store"
)

type PipelineStore struct {
	table *store.Table
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *PipelineStore {
	return &PipelineStore{
		table: store.NewTable(db, logFactory, "pipelines", "pipeline"),
	}
}

// Create a new pipeline.
// Returns store.ErrAlreadyExists if a pipeline with matching unique properties already exists.
func (d *PipelineStore) Create(ctx context.Context, txOrNil *store.Tx, pipeline *models.Pipeline) error {
	id, err := d.table.Create(ctx, txOrNil, pipeline)
	if err != nil {
		return err
	}
	pipeline.ID = models.PipelineID(id)
	return nil
}

// Read an existing pipeline, looking it up by id.
// Returns models.ErrNotFound if the pipeline does not exist.
func (d *PipelineStore) Read(ctx context.Context, txOrNil *store.Tx, id models.PipelineID) (*models.Pipeline, error) {
	pipeline := &models.Pipeline{}
	return pipeline, d.table.ReadByID(ctx, txOrNil, uint64(id), pipeline)
}

// Update an existing pipeline with optimistic locking. Overrides all previous values using the supplied model.
// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
func (d *PipelineStore) Update(ctx context.Context, txOrNil *store.Tx, pipeline *models.Pipeline) error {
	return d.table.UpdateByID(ctx, txOrNil, uint64(pipeline.ID), pipeline)
}
