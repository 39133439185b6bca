package trigger

import (
	"context"

	"github.com/conveyorci/conveyor/common/gerror"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/store"
)

// findInternalNextBuild locates the pending downstream build for a
// same-pipeline graph node within the event. Returns nil if none exists
// yet and the build must be created.
func (s *TriggerService) findInternalNextBuild(ctx context.Context, txOrNil *store.Tx, event *models.Event, nextJobName string) (*models.Build, error) {
	nextJob, err := s.jobService.ReadByName(ctx, txOrNil, event.PipelineID, models.TrimJobName(nextJobName))
	if err != nil {
		return nil, err
	}
	candidates, err := s.buildService.LatestBuildsForGroupEvent(ctx, txOrNil, event.GroupEventID)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		if candidate.JobID == nextJob.ID && candidate.EventID == event.ID {
			return candidate, nil
		}
	}
	return nil, nil
}

// findExternalNextBuild locates the pending downstream build for an
// external pipeline's job within the current event: the newest CREATED
// build of that job. Returns nil if none exists yet.
func (s *TriggerService) findExternalNextBuild(ctx context.Context, txOrNil *store.Tx, event *models.Event, next models.TriggerName) (*models.Build, error) {
	nextJob, err := s.jobService.ReadByName(ctx, txOrNil, next.PipelineID, next.JobName)
	if err != nil {
		return nil, err
	}
	nextBuild, err := s.buildService.LatestCreatedForJob(ctx, txOrNil, nextJob.ID, event.ID)
	if err != nil {
		if gerror.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return nextBuild, nil
}
