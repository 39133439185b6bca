package trigger

import (
	"context"

	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/store"
)

// listFillCandidates gathers the builds whose results can satisfy null
// ledger slots: builds that finished anywhere in the event's restart
// lineage, plus builds of sibling events under the same parent (external
// fan-outs running alongside this pipeline). Pending builds are excluded
// so a slot is only filled by a build that actually reached this point.
func (s *TriggerService) listFillCandidates(ctx context.Context, txOrNil *store.Tx, event *models.Event) ([]*models.Build, error) {
	candidates, err := s.buildService.ListFinishedForEvent(ctx, txOrNil, event)
	if err != nil {
		return nil, err
	}
	if event.ParentEventID != nil {
		parallel, err := s.buildService.ListParallelBuilds(ctx, txOrNil, *event.ParentEventID, event.PipelineID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, parallel...)
	}
	return candidates, nil
}

// fillParentBuilds patches the ledger's null slots in place from candidate
// builds. Each unresolved (pipeline, job) pair is mapped to a workflow
// graph node, the node to a job row, and the job to the newest matching
// candidate. Slots that cannot be resolved stay null: the join simply
// evaluates as not done and is retried when the next upstream build
// reports in.
func (s *TriggerService) fillParentBuilds(
	ctx context.Context,
	txOrNil *store.Tx,
	ledger models.ParentBuilds,
	event *models.Event,
	candidates []*models.Build,
) {
	for pipelineID, entry := range ledger {
		for jobName, buildID := range entry.Jobs {
			if buildID != nil {
				continue
			}
			nodeName := models.TrimJobName(jobName)
			if pipelineID != event.PipelineID {
				nodeName = models.ExternalTriggerName(pipelineID, jobName)
				// External parents may appear as trigger nodes ("~sd@...").
				if event.WorkflowGraph.FindNode(nodeName) == nil && event.WorkflowGraph.FindNode("~"+nodeName) != nil {
					nodeName = "~" + nodeName
				}
			}
			if event.WorkflowGraph.FindNode(nodeName) == nil {
				s.Warnf("Workflow graph of event %s has no node %q for ledger slot (%s, %s); skipping",
					event.ID, nodeName, pipelineID, jobName)
				continue
			}
			upstreamJob, err := s.jobService.ReadByName(ctx, txOrNil, pipelineID, models.TrimJobName(jobName))
			if err != nil {
				s.Warnf("No job %q in pipeline %s for ledger slot; skipping: %v", jobName, pipelineID, err)
				continue
			}
			// Candidates are newest first; the first match wins.
			for _, candidate := range candidates {
				if candidate.JobID != upstreamJob.ID {
					continue
				}
				id := candidate.ID
				eventID := candidate.EventID
				entry.Jobs[jobName] = &id
				entry.EventID = &eventID
				break
			}
		}
	}
}
