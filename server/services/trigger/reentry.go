package trigger

import (
	"context"
	"fmt"
	"strings"

	"github.com/conveyorci/conveyor/common/gerror"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/dto"
	"github.com/conveyorci/conveyor/server/services/trigger/parser"
)

// reentryTargetNode locates the re-entered job's node in the originating
// event's snapshot graph. Snapshots may keep the cross-pipeline form of
// the name ("~sd@1:deploy"), so a node whose name contains the raw job
// name also matches.
func reentryTargetNode(graph *models.WorkflowGraph, jobName string) *models.WorkflowNode {
	if node := graph.FindNode(jobName); node != nil {
		return node
	}
	for i := range graph.Nodes {
		if strings.Contains(graph.Nodes[i].Name, jobName) {
			return &graph.Nodes[i]
		}
	}
	return nil
}

// handleExternalReentry reconciles an external trigger that points back at
// the pipeline the flow originated from. The downstream pipeline already
// has an event for this flow, so instead of forking a new event the
// handler patches that event's pending build with everything learned on
// the round trip, restarts the flow in a fresh event if the build already
// ran, and then evaluates the join so a build with several external
// parents is not started before all of them have reported in.
func (s *TriggerService) handleExternalReentry(
	ctx context.Context,
	pipeline *models.Pipeline,
	job *models.Job,
	build *models.Build,
	event *models.Event,
	next models.TriggerName,
	ledger models.ParentBuilds,
) error {
	extEntry := build.ParentBuilds[next.PipelineID]
	extEvent, err := s.eventService.Read(ctx, nil, *extEntry.EventID)
	if err != nil {
		return fmt.Errorf("error reading originating event for pipeline %s: %w", next.PipelineID, err)
	}
	extGraph := &extEvent.WorkflowGraph
	if reentryTargetNode(extGraph, next.JobName) == nil {
		return gerror.NewErrGraphMismatch(
			fmt.Sprintf("workflow graph of event %s has no node %q", extEvent.ID, next.JobName))
	}

	candidates, err := s.listFillCandidates(ctx, nil, extEvent)
	if err != nil {
		return err
	}
	s.fillParentBuilds(ctx, nil, ledger, extEvent, candidates)

	nextJob, err := s.jobService.ReadByName(ctx, nil, next.PipelineID, next.JobName)
	if err != nil {
		return err
	}
	// The pending build may still be CREATED, so it is looked up in the
	// lineage's latest builds rather than the finished fill candidates.
	latest, err := s.buildService.LatestBuildsForGroupEvent(ctx, nil, extEvent.GroupEventID)
	if err != nil {
		return err
	}
	var nextBuild *models.Build
	for _, candidate := range latest {
		if candidate.JobID == nextJob.ID {
			nextBuild = candidate
			break
		}
	}

	currentJobName := models.TrimJobName(job.Name)
	switch {
	case nextBuild == nil:
		nextBuild, err = s.createReentryBuild(ctx, pipeline, job, build, extEvent, extEntry, next, ledger)
		if err != nil {
			return err
		}
		if nextBuild == nil {
			return nil
		}

	case nextBuild.Status != models.BuildStatusCreated:
		// The build already ran; the round trip restarts the flow in a
		// fresh event anchored to the same lineage.
		startFrom := next.JobName
		if extGraph.FindNode(models.TildeTriggerName(pipeline.ID, currentJobName)) != nil {
			startFrom = models.TildeTriggerName(pipeline.ID, currentJobName)
		}
		parentEventID := event.ID
		_, err = s.createExternalBuild(ctx, &externalBuildRequest{
			PipelineID:     next.PipelineID,
			StartFrom:      startFrom,
			CauseMessage:   fmt.Sprintf("Triggered by %s", models.ExternalTriggerName(pipeline.ID, currentJobName)),
			ParentBuildIDs: models.BuildIDList{build.ID},
			ParentBuilds:   models.MergeParentBuilds(nextBuild.ParentBuilds, ledger),
			ParentEventID:  &parentEventID,
			GroupEventID:   nextBuild.EventID,
		})
		return err

	default:
		nextBuild, err = s.updateParentBuilds(ctx, nextBuild.ID, ledger, build.ID)
		if err != nil {
			return err
		}
	}

	joinList := parser.SrcForJoin(extGraph, next.JobName)
	done, hasFailure, err := s.evaluateJoin(ctx, nil, nextBuild, joinList, next.PipelineID)
	if err != nil {
		return err
	}
	return s.handleNewBuild(ctx, done, hasFailure, nextBuild)
}

// createReentryBuild makes the pending build for the re-entered job inside
// the originating event, linking it both to the build that came back
// around and to the originating pipeline's own parent of the current job.
func (s *TriggerService) createReentryBuild(
	ctx context.Context,
	pipeline *models.Pipeline,
	job *models.Job,
	build *models.Build,
	extEvent *models.Event,
	extEntry *models.ParentBuildsForPipeline,
	next models.TriggerName,
	ledger models.ParentBuilds,
) (*models.Build, error) {
	parentBuildIDs := models.BuildIDList{build.ID}
	if parentJobName := s.findReentrySourceJob(pipeline, job, extEvent); parentJobName != "" {
		if parentBuildID := extEntry.Jobs[parentJobName]; parentBuildID != nil {
			parentBuildIDs = append(parentBuildIDs, *parentBuildID)
		}
	}
	start := false
	nextJob, err := s.jobService.ReadByName(ctx, nil, next.PipelineID, next.JobName)
	if err != nil {
		return nil, err
	}
	return s.buildService.Create(ctx, nil, &dto.CreateBuild{
		JobID:             nextJob.ID,
		EventID:           extEvent.ID,
		SHA:               extEvent.SHA,
		ParentBuildIDs:    parentBuildIDs,
		ParentBuilds:      ledger,
		Username:          build.Username,
		BaseBranch:        extEvent.BaseBranch,
		ConfigPipelineSHA: extEvent.ConfigPipelineSHA,
		Start:             &start,
	})
}

// findReentrySourceJob returns the originating-pipeline job whose edge
// triggered the current job, located by the external node that names the
// current job in the originating event's graph.
func (s *TriggerService) findReentrySourceJob(pipeline *models.Pipeline, job *models.Job, extEvent *models.Event) string {
	currentNodeName := models.ExternalTriggerName(pipeline.ID, models.TrimJobName(job.Name))
	for _, edge := range extEvent.WorkflowGraph.Edges {
		if edge.Dest == currentNodeName || edge.Dest == "~"+currentNodeName {
			return edge.Src
		}
	}
	return ""
}
