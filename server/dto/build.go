package dto

import (
	"github.com/conveyorci/conveyor/common/models"
)

// CreateBuild is the payload for creating a build for a job within an event.
// Exactly one of JobID or JobName must identify the job; JobName is resolved
// within PipelineID.
type CreateBuild struct {
	JobID      models.JobID
	PipelineID models.PipelineID
	JobName    string
	EventID    models.EventID
	// SHA overrides the event's commit when set.
	SHA string
	// ParentBuildIDs records the upstream build(s) that caused this build.
	ParentBuildIDs models.BuildIDList
	// ParentBuilds is the initial ledger the build carries.
	ParentBuilds      models.ParentBuilds
	Username          string
	BaseBranch        string
	ConfigPipelineSHA string
	// Start queues the build immediately after creation. Defaults to true;
	// join destinations are created with Start false and promoted later.
	Start *bool
}

// ShouldStart returns the Start flag, defaulting to true.
func (c *CreateBuild) ShouldStart() bool {
	return c.Start == nil || *c.Start
}
