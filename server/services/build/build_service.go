package build

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/dto"
	"github.com/conveyorci/conveyor/server/store"
)

type BuildService struct {
	db         *store.DB
	buildStore store.BuildStore
	jobStore   store.JobStore
	eventStore store.EventStore
	clock      clock.Clock
	logger.Log
}

func NewBuildService(
	db *store.DB,
	buildStore store.BuildStore,
	jobStore store.JobStore,
	eventStore store.EventStore,
	clk clock.Clock,
	logFactory logger.LogFactory,
) *BuildService {
	return &BuildService{
		db:         db,
		buildStore: buildStore,
		jobStore:   jobStore,
		eventStore: eventStore,
		clock:      clk,
		Log:        logFactory("BuildService"),
	}
}

// Read an existing build, looking it up by id.
// Returns models.ErrNotFound if the build does not exist.
func (s *BuildService) Read(ctx context.Context, txOrNil *store.Tx, id models.BuildID) (*models.Build, error) {
	return s.buildStore.Read(ctx, txOrNil, id)
}

// Create makes a new build for a job within an event. The job is resolved by
// id, or by name within the payload's pipeline. Disabled jobs are skipped
// silently: Create returns nil with no error and persists nothing.
func (s *BuildService) Create(ctx context.Context, txOrNil *store.Tx, payload *dto.CreateBuild) (*models.Build, error) {
	var build *models.Build
	err := s.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		var (
			job *models.Job
			err error
		)
		if payload.JobID.Valid() {
			job, err = s.jobStore.Read(ctx, tx, payload.JobID)
		} else {
			job, err = s.jobStore.ReadByName(ctx, tx, payload.PipelineID, payload.JobName)
		}
		if err != nil {
			return fmt.Errorf("error reading job: %w", err)
		}
		if !job.Enabled() {
			s.Infof("Skipping build creation for disabled job %q (id %s)", job.Name, job.ID)
			return nil
		}
		status := models.BuildStatusCreated
		if payload.ShouldStart() {
			status = models.BuildStatusQueued
		}
		now := models.NewTime(s.clock.Now())
		build = models.NewBuild(now, models.BuildData{
			EventID:           payload.EventID,
			JobID:             job.ID,
			Status:            status,
			SHA:               payload.SHA,
			ParentBuildIDs:    payload.ParentBuildIDs,
			ParentBuilds:      payload.ParentBuilds,
			Username:          payload.Username,
			BaseBranch:        payload.BaseBranch,
			ConfigPipelineSHA: payload.ConfigPipelineSHA,
		})
		err = s.buildStore.Create(ctx, tx, build)
		if err != nil {
			return fmt.Errorf("error creating build: %w", err)
		}
		s.Infof("Created build %s for job %q in event %s (status %s)", build.ID, job.Name, build.EventID, build.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return build, nil
}

// Update persists changes to an existing build with optimistic locking.
// Returns store.ErrOptimisticLockFailed on an ETag mismatch.
func (s *BuildService) Update(ctx context.Context, txOrNil *store.Tx, build *models.Build) error {
	build.SetUpdatedAt(models.NewTime(s.clock.Now()))
	return s.buildStore.Update(ctx, txOrNil, build)
}

// Start promotes a build to QUEUED, from where execution picks it up.
func (s *BuildService) Start(ctx context.Context, txOrNil *store.Tx, build *models.Build) error {
	build.Status = models.BuildStatusQueued
	err := s.Update(ctx, txOrNil, build)
	if err != nil {
		return fmt.Errorf("error queueing build %s: %w", build.ID, err)
	}
	s.Infof("Queued build %s for execution", build.ID)
	return nil
}

// Delete removes a build. Idempotent.
func (s *BuildService) Delete(ctx context.Context, txOrNil *store.Tx, id models.BuildID) error {
	return s.buildStore.Delete(ctx, txOrNil, id)
}

// LockRowForUpdate takes out an exclusive row lock on the build row.
// Must be called within a transaction.
func (s *BuildService) LockRowForUpdate(ctx context.Context, tx *store.Tx, id models.BuildID) error {
	return s.buildStore.LockRowForUpdate(ctx, tx, id)
}

// ListByEventID lists all builds of an event, newest first.
func (s *BuildService) ListByEventID(ctx context.Context, txOrNil *store.Tx, eventID models.EventID) ([]*models.Build, error) {
	return s.buildStore.ListByEventID(ctx, txOrNil, eventID)
}

// ListFinishedForEvent lists the builds with a terminal status across all
// events sharing the given event's restart group.
func (s *BuildService) ListFinishedForEvent(ctx context.Context, txOrNil *store.Tx, event *models.Event) ([]*models.Build, error) {
	return s.buildStore.ListFinishedForEvent(ctx, txOrNil, event.GroupEventID)
}

// ListParallelBuilds lists builds of sibling events: events whose parent is
// parentEventID, excluding events of excludePipelineID.
func (s *BuildService) ListParallelBuilds(ctx context.Context, txOrNil *store.Tx, parentEventID models.EventID, excludePipelineID models.PipelineID) ([]*models.Build, error) {
	return s.buildStore.ListParallelBuilds(ctx, txOrNil, parentEventID, excludePipelineID)
}

// LatestCreatedForJob returns the newest CREATED build for the job within
// the event. Returns models.ErrNotFound if there is none.
func (s *BuildService) LatestCreatedForJob(ctx context.Context, txOrNil *store.Tx, jobID models.JobID, eventID models.EventID) (*models.Build, error) {
	return s.buildStore.LatestCreatedForJob(ctx, txOrNil, jobID, eventID)
}

// LatestBuildsForGroupEvent returns the newest build per job across all
// events sharing the given group event.
func (s *BuildService) LatestBuildsForGroupEvent(ctx context.Context, txOrNil *store.Tx, groupEventID models.EventID) ([]*models.Build, error) {
	return s.buildStore.LatestBuildsForGroupEvent(ctx, txOrNil, groupEventID)
}
