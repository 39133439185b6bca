package dto

import (
	"github.com/conveyorci/conveyor/common/models"
)

// CreateEvent is the payload for creating an event for a pipeline.
type CreateEvent struct {
	PipelineID models.PipelineID
	Type       models.EventType
	// StartFrom is the job name or trigger node ("~sd@<pid>:<job>") the
	// event begins execution at.
	StartFrom    string
	CauseMessage string
	Username     string
	// SHA pins the event to a commit; resolved via the pipeline admin's SCM
	// token when empty.
	SHA               string
	ConfigPipelineSHA string
	BaseBranch        string
	PR                models.PRInfo
	// ParentEventID links the event to the upstream event that caused it.
	ParentEventID *models.EventID
	// GroupEventID overrides the restart-lineage root; the event's own id
	// is used when zero.
	GroupEventID models.EventID
	// ParentBuildIDs records the upstream build(s) that caused this event.
	ParentBuildIDs models.BuildIDList
	// ParentBuilds is the ledger the event's initial builds carry.
	ParentBuilds models.ParentBuilds
	// Start queues the initial builds immediately. Defaults to true.
	Start *bool
}

// ShouldStart returns the Start flag, defaulting to true.
func (c *CreateEvent) ShouldStart() bool {
	return c.Start == nil || *c.Start
}

// EventWithBuilds is an event together with the initial builds created for
// its start jobs.
type EventWithBuilds struct {
	*models.Event
	Builds []*models.Build `json:"builds"`
}
