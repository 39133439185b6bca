package trigger

import (
	"context"
	"fmt"

	"github.com/conveyorci/conveyor/common/gerror"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/dto"
	"github.com/conveyorci/conveyor/server/store"
)

// createInternalBuild makes a build for a job of the event's own pipeline,
// inheriting the event's commit and branch. Returns nil with no error if
// the job is disabled.
func (s *TriggerService) createInternalBuild(
	ctx context.Context,
	txOrNil *store.Tx,
	event *models.Event,
	jobName string,
	ledger models.ParentBuilds,
	parentBuildIDs models.BuildIDList,
	username string,
	start bool,
) (*models.Build, error) {
	return s.buildService.Create(ctx, txOrNil, &dto.CreateBuild{
		PipelineID:        event.PipelineID,
		JobName:           jobName,
		EventID:           event.ID,
		SHA:               event.SHA,
		ParentBuildIDs:    parentBuildIDs,
		ParentBuilds:      ledger,
		Username:          username,
		BaseBranch:        event.BaseBranch,
		ConfigPipelineSHA: event.ConfigPipelineSHA,
		Start:             &start,
	})
}

// createExternalJoinBuild makes an unstarted build for another pipeline's
// job inside the current event. The build is queued later, by the join
// evaluation, once all of its parents have reported in.
func (s *TriggerService) createExternalJoinBuild(
	ctx context.Context,
	txOrNil *store.Tx,
	event *models.Event,
	next models.TriggerName,
	ledger models.ParentBuilds,
	parentBuildIDs models.BuildIDList,
	username string,
) (*models.Build, error) {
	nextJob, err := s.jobService.ReadByName(ctx, txOrNil, next.PipelineID, next.JobName)
	if err != nil {
		return nil, err
	}
	start := false
	return s.buildService.Create(ctx, txOrNil, &dto.CreateBuild{
		JobID:             nextJob.ID,
		EventID:           event.ID,
		SHA:               event.SHA,
		ParentBuildIDs:    parentBuildIDs,
		ParentBuilds:      ledger,
		Username:          username,
		BaseBranch:        event.BaseBranch,
		ConfigPipelineSHA: event.ConfigPipelineSHA,
		Start:             &start,
	})
}

// externalBuildRequest describes the downstream event an external trigger
// creates on another pipeline.
type externalBuildRequest struct {
	PipelineID     models.PipelineID
	StartFrom      string
	CauseMessage   string
	ParentBuildIDs models.BuildIDList
	ParentBuilds   models.ParentBuilds
	ParentEventID  *models.EventID
	GroupEventID   models.EventID
	Start          *bool
}

// createExternalBuild creates an event on the downstream pipeline,
// acting as that pipeline's admin. The event service resolves the head
// commit through the admin's SCM token.
func (s *TriggerService) createExternalBuild(ctx context.Context, req *externalBuildRequest) (*dto.EventWithBuilds, error) {
	extPipeline, err := s.pipelineService.Read(ctx, nil, req.PipelineID)
	if err != nil {
		return nil, fmt.Errorf("error reading downstream pipeline %s: %w", req.PipelineID, err)
	}
	admin := s.pipelineService.Admin(ctx, extPipeline)
	return s.eventService.Create(ctx, nil, &dto.CreateEvent{
		PipelineID:     extPipeline.ID,
		Type:           models.EventTypePipeline,
		StartFrom:      req.StartFrom,
		CauseMessage:   req.CauseMessage,
		Username:       admin.Username,
		ParentEventID:  req.ParentEventID,
		GroupEventID:   req.GroupEventID,
		ParentBuildIDs: req.ParentBuildIDs,
		ParentBuilds:   req.ParentBuilds,
		Start:          req.Start,
	})
}

// updateParentBuilds records a new contribution on a pending next build:
// the freshly read ledger is merged with the contribution and the current
// build's id is prepended to the parent list. The read-merge-write runs
// under a row lock so concurrent upstream completions cannot drop each
// other's entries; an ETag conflict from a non-transactional writer is
// retried once.
func (s *TriggerService) updateParentBuilds(
	ctx context.Context,
	nextBuildID models.BuildID,
	contribution models.ParentBuilds,
	currentBuildID models.BuildID,
) (*models.Build, error) {
	var nextBuild *models.Build
	update := func() error {
		return s.db.WithTx(ctx, nil, func(tx *store.Tx) error {
			err := s.buildService.LockRowForUpdate(ctx, tx, nextBuildID)
			if err != nil {
				return err
			}
			nextBuild, err = s.buildService.Read(ctx, tx, nextBuildID)
			if err != nil {
				return err
			}
			nextBuild.ParentBuilds = models.MergeParentBuilds(nextBuild.ParentBuilds, contribution)
			if !nextBuild.ParentBuildIDs.Contains(currentBuildID) {
				nextBuild.ParentBuildIDs = append(models.BuildIDList{currentBuildID}, nextBuild.ParentBuildIDs...)
			}
			return s.buildService.Update(ctx, tx, nextBuild)
		})
	}
	err := update()
	if gerror.IsOptimisticLockFailed(err) {
		s.Warnf("Lost a ledger update race on build %s; retrying", nextBuildID)
		err = update()
	}
	if err != nil {
		return nil, fmt.Errorf("error recording contribution on build %s: %w", nextBuildID, err)
	}
	return nextBuild, nil
}

// handleNewBuild applies the join verdict to a pending next build: not
// done is a no-op, a completed join with a failed parent removes the
// build, and a cleanly completed join queues it for execution. Removal is
// best-effort; a failure to remove is logged, not retried.
func (s *TriggerService) handleNewBuild(ctx context.Context, done bool, hasFailure bool, nextBuild *models.Build) error {
	if nextBuild == nil || !done {
		return nil
	}
	if hasFailure {
		s.Infof("Join for build %s completed with a failed parent; removing the build", nextBuild.ID)
		err := s.buildService.Delete(ctx, nil, nextBuild.ID)
		if err != nil {
			s.Errorf("Failed to remove build %s after join failure: %v", nextBuild.ID, err)
		}
		return nil
	}
	return s.buildService.Start(ctx, nil, nextBuild)
}
