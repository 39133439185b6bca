package event

import (
	"context"
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/dto"
	"github.com/conveyorci/conveyor/server/services"
	"github.com/conveyorci/conveyor/server/services/scm"
	"github.com/conveyorci/conveyor/server/services/trigger/parser"
	"github.com/conveyorci/conveyor/server/store"
)

type EventService struct {
	db              *store.DB
	eventStore      store.EventStore
	pipelineService services.PipelineService
	buildService    services.BuildService
	scmRegistry     *scm.Registry
	clock           clock.Clock
	logger.Log
}

func NewEventService(
	db *store.DB,
	eventStore store.EventStore,
	pipelineService services.PipelineService,
	buildService services.BuildService,
	scmRegistry *scm.Registry,
	clk clock.Clock,
	logFactory logger.LogFactory,
) *EventService {
	return &EventService{
		db:              db,
		eventStore:      eventStore,
		pipelineService: pipelineService,
		buildService:    buildService,
		scmRegistry:     scmRegistry,
		clock:           clk,
		Log:             logFactory("EventService"),
	}
}

// Read an existing event, looking it up by id.
// Returns models.ErrNotFound if the event does not exist.
func (s *EventService) Read(ctx context.Context, txOrNil *store.Tx, id models.EventID) (*models.Event, error) {
	return s.eventStore.Read(ctx, txOrNil, id)
}

// Create makes a new event for a pipeline. The pipeline's workflow graph is
// snapshotted onto the event, the commit SHA is resolved through the
// pipeline admin's SCM token when the payload does not pin one, and a build
// is created for each enabled start job.
func (s *EventService) Create(ctx context.Context, txOrNil *store.Tx, payload *dto.CreateEvent) (*dto.EventWithBuilds, error) {
	var result *dto.EventWithBuilds
	err := s.db.WithTx(ctx, txOrNil, func(tx *store.Tx) error {
		pipeline, err := s.pipelineService.Read(ctx, tx, payload.PipelineID)
		if err != nil {
			return fmt.Errorf("error reading pipeline: %w", err)
		}

		sha := payload.SHA
		if sha == "" {
			sha, err = s.resolveHeadSHA(ctx, pipeline)
			if err != nil {
				return fmt.Errorf("error resolving head commit for pipeline %s: %w", pipeline.ID, err)
			}
		}

		// A pipeline whose configuration lives in another pipeline's
		// repository pins the config commit alongside its own.
		configPipelineSHA := payload.ConfigPipelineSHA
		if configPipelineSHA == "" && pipeline.ConfigPipelineID != nil {
			configPipeline, err := s.pipelineService.Read(ctx, tx, *pipeline.ConfigPipelineID)
			if err != nil {
				return fmt.Errorf("error reading config pipeline %s: %w", *pipeline.ConfigPipelineID, err)
			}
			configPipelineSHA, err = s.resolveHeadSHA(ctx, configPipeline)
			if err != nil {
				return fmt.Errorf("error resolving head commit for config pipeline %s: %w", configPipeline.ID, err)
			}
		}

		baseBranch := payload.BaseBranch
		if baseBranch == "" {
			baseBranch = pipeline.Branch
		}

		eventType := payload.Type
		if eventType == "" {
			eventType = models.EventTypePipeline
			if !payload.PR.Empty() {
				eventType = models.EventTypePR
			}
		}

		now := models.NewTime(s.clock.Now())
		event := models.NewEvent(now, models.EventData{
			PipelineID:        pipeline.ID,
			Type:              eventType,
			WorkflowGraph:     pipeline.WorkflowGraph,
			SHA:               sha,
			ConfigPipelineSHA: configPipelineSHA,
			ParentEventID:     payload.ParentEventID,
			GroupEventID:      payload.GroupEventID,
			BaseBranch:        baseBranch,
			PR:                payload.PR,
			StartFrom:         payload.StartFrom,
			ParentBuildIDs:    payload.ParentBuildIDs,
			CauseMessage:      payload.CauseMessage,
			Username:          payload.Username,
		})
		err = s.eventStore.Create(ctx, tx, event)
		if err != nil {
			return fmt.Errorf("error creating event: %w", err)
		}
		// Root events anchor their own restart lineage. The id only exists
		// after the insert, so the group is stamped in a follow-up update.
		if !event.GroupEventID.Valid() {
			event.GroupEventID = event.ID
			err = s.eventStore.Update(ctx, tx, event)
			if err != nil {
				return fmt.Errorf("error setting group event id: %w", err)
			}
		}

		builds, err := s.createStartBuilds(ctx, tx, event, payload)
		if err != nil {
			return err
		}
		s.Infof("Created event %s for pipeline %s starting from %q with %d build(s)",
			event.ID, pipeline.ID, event.StartFrom, len(builds))
		result = &dto.EventWithBuilds{Event: event, Builds: builds}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByGroupEventID lists all events in a restart lineage, newest first.
func (s *EventService) ListByGroupEventID(ctx context.Context, txOrNil *store.Tx, groupEventID models.EventID) ([]*models.Event, error) {
	return s.eventStore.ListByGroupEventID(ctx, txOrNil, groupEventID)
}

// ListByParentEventID lists all events triggered by builds of the given event, newest first.
func (s *EventService) ListByParentEventID(ctx context.Context, txOrNil *store.Tx, parentEventID models.EventID) ([]*models.Event, error) {
	return s.eventStore.ListByParentEventID(ctx, txOrNil, parentEventID)
}

// resolveHeadSHA asks the pipeline's SCM for the current head commit,
// authenticating as the pipeline admin.
func (s *EventService) resolveHeadSHA(ctx context.Context, pipeline *models.Pipeline) (string, error) {
	scmImpl, err := s.scmRegistry.Get(pipeline.ScmContext)
	if err != nil {
		return "", err
	}
	admin := s.pipelineService.Admin(ctx, pipeline)
	token, err := admin.UnsealToken()
	if err != nil {
		return "", fmt.Errorf("error unsealing admin token: %w", err)
	}
	return scmImpl.GetCommitSHA(ctx, pipeline.ScmURI, token)
}

// createStartBuilds makes one build per start job. A tilde-prefixed
// StartFrom is a trigger node, and the start jobs are its graph successors;
// otherwise the named job itself starts. Disabled jobs are skipped.
func (s *EventService) createStartBuilds(ctx context.Context, tx *store.Tx, event *models.Event, payload *dto.CreateEvent) ([]*models.Build, error) {
	startJobs := []string{event.StartFrom}
	if strings.HasPrefix(event.StartFrom, "~") {
		startJobs = parser.NextJobs(&event.WorkflowGraph, event.StartFrom, false)
	}

	var builds []*models.Build
	for _, jobName := range startJobs {
		build, err := s.buildService.Create(ctx, tx, &dto.CreateBuild{
			PipelineID:        event.PipelineID,
			JobName:           jobName,
			EventID:           event.ID,
			SHA:               event.SHA,
			ParentBuildIDs:    event.ParentBuildIDs,
			ParentBuilds:      payload.ParentBuilds,
			Username:          event.Username,
			BaseBranch:        event.BaseBranch,
			ConfigPipelineSHA: event.ConfigPipelineSHA,
			Start:             payload.Start,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating build for start job %q: %w", jobName, err)
		}
		if build != nil {
			builds = append(builds, build)
		}
	}
	return builds, nil
}
