package services

import (
	"context"

	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/dto"
	"github.com/conveyorci/conveyor/server/store"
)

type PipelineService interface {
	// Read an existing pipeline, looking it up by id.
	// Returns models.ErrNotFound if the pipeline does not exist.
	Read(ctx context.Context, txOrNil *store.Tx, id models.PipelineID) (*models.Pipeline, error)
	// Admin returns the pipeline's admin principal, wired to unseal the
	// admin's SCM token on demand.
	Admin(ctx context.Context, pipeline *models.Pipeline) *dto.PipelineAdmin
}

type JobService interface {
	// Read an existing job, looking it up by id.
	// Returns models.ErrNotFound if the job does not exist.
	Read(ctx context.Context, txOrNil *store.Tx, id models.JobID) (*models.Job, error)
	// ReadByName reads an existing job, looking it up by pipeline and name.
	// Returns models.ErrNotFound if the job does not exist.
	ReadByName(ctx context.Context, txOrNil *store.Tx, pipelineID models.PipelineID, name string) (*models.Job, error)
	// ListByPipelineID lists all jobs belonging to a pipeline.
	ListByPipelineID(ctx context.Context, txOrNil *store.Tx, pipelineID models.PipelineID) ([]*models.Job, error)
}

type EventService interface {
	// Read an existing event, looking it up by id.
	// Returns models.ErrNotFound if the event does not exist.
	Read(ctx context.Context, txOrNil *store.Tx, id models.EventID) (*models.Event, error)
	// Create makes a new event for a pipeline, snapshotting the pipeline's
	// workflow graph and creating builds for the event's start jobs.
	Create(ctx context.Context, txOrNil *store.Tx, payload *dto.CreateEvent) (*dto.EventWithBuilds, error)
	// ListByGroupEventID lists all events in a restart lineage, newest first.
	ListByGroupEventID(ctx context.Context, txOrNil *store.Tx, groupEventID models.EventID) ([]*models.Event, error)
	// ListByParentEventID lists all events triggered by builds of the given event, newest first.
	ListByParentEventID(ctx context.Context, txOrNil *store.Tx, parentEventID models.EventID) ([]*models.Event, error)
}

type BuildService interface {
	// Read an existing build, looking it up by id.
	// Returns models.ErrNotFound if the build does not exist.
	Read(ctx context.Context, txOrNil *store.Tx, id models.BuildID) (*models.Build, error)
	// Create makes a new build for a job within an event. Returns nil (and
	// no error) if the job is disabled.
	Create(ctx context.Context, txOrNil *store.Tx, payload *dto.CreateBuild) (*models.Build, error)
	// Update persists changes to an existing build with optimistic locking.
	// Returns store.ErrOptimisticLockFailed on an ETag mismatch.
	Update(ctx context.Context, txOrNil *store.Tx, build *models.Build) error
	// Start promotes a build to QUEUED and hands it to execution.
	Start(ctx context.Context, txOrNil *store.Tx, build *models.Build) error
	// Delete removes a build. Idempotent.
	Delete(ctx context.Context, txOrNil *store.Tx, id models.BuildID) error
	// LockRowForUpdate takes out an exclusive row lock on the build row.
	// Must be called within a transaction.
	LockRowForUpdate(ctx context.Context, tx *store.Tx, id models.BuildID) error
	// ListByEventID lists all builds of an event, newest first.
	ListByEventID(ctx context.Context, txOrNil *store.Tx, eventID models.EventID) ([]*models.Build, error)
	// ListFinishedForEvent lists the builds with a terminal status across
	// all events sharing the given event's restart group.
	ListFinishedForEvent(ctx context.Context, txOrNil *store.Tx, event *models.Event) ([]*models.Build, error)
	// ListParallelBuilds lists builds of sibling events: events whose parent
	// is parentEventID, excluding events of excludePipelineID.
	ListParallelBuilds(ctx context.Context, txOrNil *store.Tx, parentEventID models.EventID, excludePipelineID models.PipelineID) ([]*models.Build, error)
	// LatestCreatedForJob returns the newest CREATED build for the job
	// within the event. Returns models.ErrNotFound if there is none.
	LatestCreatedForJob(ctx context.Context, txOrNil *store.Tx, jobID models.JobID, eventID models.EventID) (*models.Build, error)
	// LatestBuildsForGroupEvent returns the newest build per job across all
	// events sharing the given group event.
	LatestBuildsForGroupEvent(ctx context.Context, txOrNil *store.Tx, groupEventID models.EventID) ([]*models.Build, error)
}

type TriggerService interface {
	// TriggerEvent creates a downstream event for an arbitrary pipeline.
	TriggerEvent(ctx context.Context, payload *dto.TriggerEvent) (*dto.EventWithBuilds, error)
	// TriggerNextJobs runs the downstream trigger orchestrator for a
	// finished build: for each next job in the workflow graph it creates,
	// updates, starts or deletes the downstream build as required.
	TriggerNextJobs(ctx context.Context, payload *dto.TriggerNextJobs) error
}
