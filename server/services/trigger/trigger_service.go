// Package trigger implements the downstream trigger engine: after a build
// finishes it consults the event's workflow graph snapshot and creates,
// updates, starts or deletes the downstream builds the graph calls for,
// within the same pipeline and across pipelines.
package trigger

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/dto"
	"github.com/conveyorci/conveyor/server/services"
	"github.com/conveyorci/conveyor/server/services/trigger/parser"
	"github.com/conveyorci/conveyor/server/store"
)

type TriggerService struct {
	db              *store.DB
	pipelineService services.PipelineService
	jobService      services.JobService
	eventService    services.EventService
	buildService    services.BuildService
	clock           clock.Clock
	logger.Log
}

func NewTriggerService(
	db *store.DB,
	pipelineService services.PipelineService,
	jobService services.JobService,
	eventService services.EventService,
	buildService services.BuildService,
	clk clock.Clock,
	logFactory logger.LogFactory,
) *TriggerService {
	return &TriggerService{
		db:              db,
		pipelineService: pipelineService,
		jobService:      jobService,
		eventService:    eventService,
		buildService:    buildService,
		clock:           clk,
		Log:             logFactory("TriggerService"),
	}
}

// TriggerEvent creates a downstream event for an arbitrary pipeline.
func (s *TriggerService) TriggerEvent(ctx context.Context, payload *dto.TriggerEvent) (*dto.EventWithBuilds, error) {
	return s.eventService.Create(ctx, nil, &dto.CreateEvent{
		PipelineID:     payload.PipelineID,
		Type:           models.EventTypePipeline,
		StartFrom:      payload.StartFrom,
		CauseMessage:   payload.CauseMessage,
		Username:       payload.Username,
		ParentEventID:  payload.ParentEventID,
		GroupEventID:   payload.GroupEventID,
		ParentBuildIDs: payload.ParentBuildIDs,
		ParentBuilds:   payload.ParentBuilds,
	})
}

// TriggerNextJobs runs the downstream trigger flow for a finished build.
// Next jobs are processed sequentially; a failure in one is logged and does
// not prevent the others.
func (s *TriggerService) TriggerNextJobs(ctx context.Context, payload *dto.TriggerNextJobs) error {
	pipeline := payload.Pipeline
	job := payload.Job
	build := payload.Build

	event, err := s.eventService.Read(ctx, nil, build.EventID)
	if err != nil {
		return fmt.Errorf("error reading event for build %s: %w", build.ID, err)
	}

	nextJobNames := parser.NextJobs(&event.WorkflowGraph, job.Name, pipeline.ChainPR)
	s.Tracef("Build %s (job %q) finished; next jobs: %v", build.ID, job.Name, nextJobNames)

	for _, nextJobName := range nextJobNames {
		err := s.triggerNextJob(ctx, pipeline, job, build, event, nextJobName)
		if err != nil {
			s.Errorf("Failed to trigger next job %q after build %s: %v", nextJobName, build.ID, err)
		}
	}
	return nil
}

// triggerNextJob dispatches one next job to the path its graph shape calls
// for: immediate start for sequential and OR edges, event creation or
// re-entry reconciliation for external edges, and resolve-update-evaluate
// for joins.
func (s *TriggerService) triggerNextJob(
	ctx context.Context,
	pipeline *models.Pipeline,
	job *models.Job,
	build *models.Build,
	event *models.Event,
	nextJobName string,
) error {
	currentJobName := models.TrimJobName(job.Name)
	joinList := parser.SrcForJoin(&event.WorkflowGraph, models.TrimJobName(nextJobName))
	next := models.ParseTriggerName(nextJobName, pipeline.ID)

	// The ledger the next build carries: one null slot per join parent,
	// everything the current build already knows, and the current build's
	// own contribution, in that order so the contribution wins.
	ledger := models.MergeParentBuilds(
		models.NewJoinSkeleton(pipeline.ID, joinList),
		build.ParentBuilds,
		models.NewSingletonParentBuilds(pipeline.ID, event.ID, currentJobName, build.ID),
	)

	// An OR-trigger names several alternative parents but not the job that
	// just finished, so any one parent launches the next job alone.
	isORTrigger := len(joinList) > 0 &&
		!containsName(joinList, currentJobName) &&
		!containsName(joinList, models.ExternalTriggerName(pipeline.ID, currentJobName))

	if len(joinList) == 0 || isORTrigger {
		if !next.External {
			_, err := s.createInternalBuild(ctx, nil, event, next.JobName, ledger, models.BuildIDList{build.ID}, build.Username, true)
			return err
		}
		if s.isReentry(build, next.PipelineID) {
			return s.handleExternalReentry(ctx, pipeline, job, build, event, next, ledger)
		}
		return s.triggerExternalPipeline(ctx, pipeline, job, build, event, next, ledger)
	}

	if next.External {
		return s.triggerExternalJoin(ctx, build, event, next, joinList, ledger)
	}
	return s.triggerInternalJoin(ctx, pipeline, build, event, next, joinList, ledger)
}

// triggerInternalJoin handles a same-pipeline AND-join: find or create the
// pending next build, record the current build's contribution, and start or
// remove the next build once every join parent has reported in.
func (s *TriggerService) triggerInternalJoin(
	ctx context.Context,
	pipeline *models.Pipeline,
	build *models.Build,
	event *models.Event,
	next models.TriggerName,
	joinList []string,
	ledger models.ParentBuilds,
) error {
	candidates, err := s.listFillCandidates(ctx, nil, event)
	if err != nil {
		return err
	}
	s.fillParentBuilds(ctx, nil, ledger, event, candidates)

	nextBuild, err := s.findInternalNextBuild(ctx, nil, event, next.JobName)
	if err != nil {
		return err
	}
	if nextBuild == nil {
		nextBuild, err = s.createInternalBuild(ctx, nil, event, next.JobName, ledger, models.BuildIDList{build.ID}, build.Username, false)
		if err != nil {
			return err
		}
		if nextBuild == nil {
			return nil
		}
	} else {
		nextBuild, err = s.updateParentBuilds(ctx, nextBuild.ID, ledger, build.ID)
		if err != nil {
			return err
		}
	}

	done, hasFailure, err := s.evaluateJoin(ctx, nil, nextBuild, joinList, pipeline.ID)
	if err != nil {
		return err
	}
	return s.handleNewBuild(ctx, done, hasFailure, nextBuild)
}

// triggerExternalJoin handles a cross-pipeline AND-join. The pending build
// for the external pipeline's job lives in the current event; it is created
// unstarted and only queued once the join completes.
func (s *TriggerService) triggerExternalJoin(
	ctx context.Context,
	build *models.Build,
	event *models.Event,
	next models.TriggerName,
	joinList []string,
	ledger models.ParentBuilds,
) error {
	candidates, err := s.listFillCandidates(ctx, nil, event)
	if err != nil {
		return err
	}
	s.fillParentBuilds(ctx, nil, ledger, event, candidates)

	nextBuild, err := s.findExternalNextBuild(ctx, nil, event, next)
	if err != nil {
		return err
	}
	if nextBuild == nil {
		nextBuild, err = s.createExternalJoinBuild(ctx, nil, event, next, ledger, models.BuildIDList{build.ID}, build.Username)
		if err != nil {
			return err
		}
		if nextBuild == nil {
			return nil
		}
	} else {
		nextBuild, err = s.updateParentBuilds(ctx, nextBuild.ID, ledger, build.ID)
		if err != nil {
			return err
		}
	}

	done, hasFailure, err := s.evaluateJoin(ctx, nil, nextBuild, joinList, event.PipelineID)
	if err != nil {
		return err
	}
	return s.handleNewBuild(ctx, done, hasFailure, nextBuild)
}

// triggerExternalPipeline handles a plain external fan-out: a fresh event
// on the downstream pipeline starting from the trigger node that points
// back at the job that just finished.
func (s *TriggerService) triggerExternalPipeline(
	ctx context.Context,
	pipeline *models.Pipeline,
	job *models.Job,
	build *models.Build,
	event *models.Event,
	next models.TriggerName,
	ledger models.ParentBuilds,
) error {
	currentJobName := models.TrimJobName(job.Name)
	// Only root events propagate themselves as the downstream parent;
	// deeper chains keep the lineage at the externally visible root.
	var parentEventID *models.EventID
	if event.ParentEventID == nil {
		id := event.ID
		parentEventID = &id
	}
	_, err := s.createExternalBuild(ctx, &externalBuildRequest{
		PipelineID:     next.PipelineID,
		StartFrom:      models.TildeTriggerName(pipeline.ID, currentJobName),
		CauseMessage:   fmt.Sprintf("Triggered by %s", models.ExternalTriggerName(pipeline.ID, currentJobName)),
		ParentBuildIDs: models.BuildIDList{build.ID},
		ParentBuilds:   ledger,
		ParentEventID:  parentEventID,
	})
	return err
}

// isReentry reports whether the downstream pipeline already contributed to
// this flow, meaning the flow originated there and state must be
// reconciled in its event rather than forked into a new one.
func (s *TriggerService) isReentry(build *models.Build, externalPipelineID models.PipelineID) bool {
	entry := build.ParentBuilds[externalPipelineID]
	return entry != nil && entry.EventID != nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
