package store

import (
	"context"

	"github.com/conveyorci/conveyor/common/models"
)

type PipelineStore interface {
	// Create a new pipeline.
	Create(ctx context.Context, txOrNil *Tx, pipeline *models.Pipeline) error
	// Read an existing pipeline, looking it up by id.
	// Returns models.ErrNotFound if the pipeline does not exist.
	Read(ctx context.Context, txOrNil *Tx, id models.PipelineID) (*models.Pipeline, error)
	// Update an existing pipeline with optimistic locking.
	Update(ctx context.Context, txOrNil *Tx, pipeline *models.Pipeline) error
}

type JobStore interface {
	// Create a new job.
	Create(ctx context.Context, txOrNil *Tx, job *models.Job) error
	// Read an existing job, looking it up by id.
	Read(ctx context.Context, txOrNil *Tx, id models.JobID) (*models.Job, error)
	// ReadByName reads an existing job, looking it up by pipeline and name.
	ReadByName(ctx context.Context, txOrNil *Tx, pipelineID models.PipelineID, name string) (*models.Job, error)
	// ListByPipelineID lists all jobs belonging to a pipeline.
	ListByPipelineID(ctx context.Context, txOrNil *Tx, pipelineID models.PipelineID) ([]*models.Job, error)
}

type EventStore interface {
	// Create a new event.
	Create(ctx context.Context, txOrNil *Tx, event *models.Event) error
	// Read an existing event, looking it up by id.
	Read(ctx context.Context, txOrNil *Tx, id models.EventID) (*models.Event, error)
	// Update an existing event with optimistic locking.
	Update(ctx context.Context, txOrNil *Tx, event *models.Event) error
	// ListByGroupEventID lists all events in a restart lineage, newest first.
	ListByGroupEventID(ctx context.Context, txOrNil *Tx, groupEventID models.EventID) ([]*models.Event, error)
	// ListByParentEventID lists all events triggered by builds of the given event, newest first.
	ListByParentEventID(ctx context.Context, txOrNil *Tx, parentEventID models.EventID) ([]*models.Event, error)
}

type BuildStore interface {
	// Create a new build.
	Create(ctx context.Context, txOrNil *Tx, build *models.Build) error
	// Read an existing build, looking it up by id.
	Read(ctx context.Context, txOrNil *Tx, id models.BuildID) (*models.Build, error)
	// Update an existing build with optimistic locking.
	Update(ctx context.Context, txOrNil *Tx, build *models.Build) error
	// Delete removes a build. Idempotent.
	Delete(ctx context.Context, txOrNil *Tx, id models.BuildID) error
	// LockRowForUpdate takes out an exclusive row lock on the build row.
	// Must be called within a transaction.
	LockRowForUpdate(ctx context.Context, tx *Tx, id models.BuildID) error
	// ListByEventID lists all builds of an event, newest first.
	ListByEventID(ctx context.Context, txOrNil *Tx, eventID models.EventID) ([]*models.Build, error)
	// ListFinishedForEvent lists the builds with a terminal status across all
	// events sharing the given event's group.
	ListFinishedForEvent(ctx context.Context, txOrNil *Tx, groupEventID models.EventID) ([]*models.Build, error)
	// ListParallelBuilds lists builds belonging to sibling events: events
	// whose parent is parentEventID, excluding events of excludePipelineID.
	ListParallelBuilds(ctx context.Context, txOrNil *Tx, parentEventID models.EventID, excludePipelineID models.PipelineID) ([]*models.Build, error)
	// LatestCreatedForJob returns the most recently created build for the
	// job within the event that is still in CREATED status.
	// Returns models.ErrNotFound if there is none.
	LatestCreatedForJob(ctx context.Context, txOrNil *Tx, jobID models.JobID, eventID models.EventID) (*models.Build, error)
	// LatestBuildsForGroupEvent returns the newest build per job across all
	// events sharing the given group event.
	LatestBuildsForGroupEvent(ctx context.Context, txOrNil *Tx, groupEventID models.EventID) ([]*models.Build, error)
}
