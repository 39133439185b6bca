package dto

import (
	"github.com/conveyorci/conveyor/common/models"
)

// TriggerEvent is the payload for creating a downstream event for an
// arbitrary pipeline.
type TriggerEvent struct {
	PipelineID     models.PipelineID
	StartFrom      string
	CauseMessage   string
	ParentBuildIDs models.BuildIDList
	ParentBuilds   models.ParentBuilds
	ParentEventID  *models.EventID
	GroupEventID   models.EventID
	Username       string
}

// TriggerNextJobs is the payload for running the downstream trigger
// orchestrator after a build finishes.
type TriggerNextJobs struct {
	Pipeline *models.Pipeline
	Job      *models.Job
	Build    *models.Build
	Username string
	// ScmContext names the SCM the triggering flow runs against.
	ScmContext string
}
