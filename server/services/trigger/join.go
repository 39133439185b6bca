package trigger

import (
	"context"
	"fmt"

	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/store"
)

// evaluateJoin decides whether a pending join build may proceed.
//
// done is true once every join parent has a known build id in the ledger
// and that build has reached a terminal status. hasFailure is true if any
// of those builds ended in a non-success terminal status; UNSTABLE counts
// as a failure so instability does not propagate downstream.
func (s *TriggerService) evaluateJoin(
	ctx context.Context,
	txOrNil *store.Tx,
	nextBuild *models.Build,
	joinList []string,
	currentPipelineID models.PipelineID,
) (done bool, hasFailure bool, err error) {
	done = true
	var upstreamIDs []models.BuildID
	for _, name := range joinList {
		parent := models.ParseTriggerName(name, currentPipelineID)
		entry := nextBuild.ParentBuilds[parent.PipelineID]
		if entry == nil {
			done = false
			continue
		}
		buildID := entry.Jobs[models.TrimJobName(parent.JobName)]
		if buildID == nil {
			done = false
			continue
		}
		upstreamIDs = append(upstreamIDs, *buildID)
	}

	for _, id := range upstreamIDs {
		upstream, err := s.buildService.Read(ctx, txOrNil, id)
		if err != nil {
			return false, false, fmt.Errorf("error reading join parent build %s: %w", id, err)
		}
		if upstream.Status.Failed() {
			hasFailure = true
		}
		if !upstream.Status.Terminal() {
			done = false
		}
	}
	return done, hasFailure, nil
}
