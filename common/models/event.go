package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

type EventType string

const (
	EventTypePipeline EventType = "pipeline"
	EventTypePR       EventType = "pr"
)

func (t EventType) Valid() bool {
	return t == EventTypePipeline || t == EventTypePR
}

func (t *EventType) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	str, ok := src.(string)
	if !ok {
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	*t = EventType(str)
	return nil
}

func (t EventType) Value() (driver.Value, error) {
	return string(t), nil
}

// PRInfo carries the pull-request context an event was created for, if any.
type PRInfo struct {
	Ref      string `json:"ref,omitempty"`
	PRSource string `json:"prSource,omitempty"`
	PRInfo   string `json:"prInfo,omitempty"`
}

func (p *PRInfo) Empty() bool {
	return p == nil || (p.Ref == "" && p.PRSource == "" && p.PRInfo == "")
}

func (p *PRInfo) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var buf []byte
	switch data := src.(type) {
	case []byte:
		buf = data
	case string:
		buf = []byte(data)
	default:
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	if len(buf) == 0 {
		return nil
	}
	err := json.Unmarshal(buf, p)
	if err != nil {
		return errors.Wrap(err, "error unmarshaling pr info")
	}
	return nil
}

func (p PRInfo) Value() (driver.Value, error) {
	buf, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling pr info")
	}
	return string(buf), nil
}

// Event is one execution of a pipeline's workflow graph. An event snapshots
// the graph at creation time so later pipeline changes do not affect builds
// already in flight.
type Event struct {
	EventMetadata
	EventData
}

type EventMetadata struct {
	ID        EventID `json:"id" goqu:"skipinsert,skipupdate" db:"event_id"`
	CreatedAt Time    `json:"created_at" goqu:"skipupdate" db:"event_created_at"`
	UpdatedAt Time    `json:"updated_at" db:"event_updated_at"`
	ETag      ETag    `json:"etag" db:"event_etag" hash:"ignore"`
}

type EventData struct {
	PipelineID    PipelineID    `json:"pipeline_id" db:"event_pipeline_id"`
	Type          EventType     `json:"type" db:"event_type"`
	WorkflowGraph WorkflowGraph `json:"workflow_graph" db:"event_workflow_graph"`
	SHA           string        `json:"sha" db:"event_sha"`
	// ConfigPipelineSHA is the commit of the config pipeline's repository
	// this event was parsed from, when the configuration lives elsewhere.
	ConfigPipelineSHA string `json:"config_pipeline_sha" db:"event_config_pipeline_sha"`
	// ParentEventID links a downstream event back to the upstream event
	// whose build triggered it.
	ParentEventID *EventID `json:"parent_event_id" db:"event_parent_event_id"`
	// GroupEventID is the root of the restart lineage this event belongs to.
	// Equals the event's own id for root events.
	GroupEventID EventID `json:"group_event_id" db:"event_group_event_id"`
	BaseBranch   string  `json:"base_branch" db:"event_base_branch"`
	PR           PRInfo  `json:"pr" db:"event_pr"`
	// StartFrom is the job or trigger node the event begins execution at.
	StartFrom string `json:"start_from" db:"event_start_from"`
	// ParentBuildIDs records the upstream build(s) whose completion caused
	// this event to be created, if any.
	ParentBuildIDs BuildIDList `json:"parent_build_ids" db:"event_parent_build_ids"`
	CauseMessage   string      `json:"cause_message" db:"event_cause_message"`
	Username       string      `json:"username" db:"event_username"`
}

func NewEvent(now Time, data EventData) *Event {
	return &Event{
		EventMetadata: EventMetadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
		EventData: data,
	}
}

func (m *Event) GetCreatedAt() Time  { return m.CreatedAt }
func (m *Event) GetUpdatedAt() Time  { return m.UpdatedAt }
func (m *Event) SetUpdatedAt(t Time) { m.UpdatedAt = t }
func (m *Event) GetETag() ETag       { return m.ETag }
func (m *Event) SetETag(eTag ETag)   { m.ETag = eTag }

func (m *Event) Validate() error {
	var result *multierror.Error
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if m.UpdatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error updated at must be set"))
	}
	if !m.PipelineID.Valid() {
		result = multierror.Append(result, errors.New("error pipeline id must be set"))
	}
	if !m.Type.Valid() {
		result = multierror.Append(result, errors.New("error type is invalid"))
	}
	if m.SHA == "" {
		result = multierror.Append(result, errors.New("error sha must be set"))
	}
	if m.ParentEventID != nil && !m.ParentEventID.Valid() {
		result = multierror.Append(result, errors.New("error parent event id must be non-zero when set"))
	}
	if len(m.WorkflowGraph.Nodes) == 0 {
		result = multierror.Append(result, errors.New("error workflow graph must have at least one node"))
	}
	return result.ErrorOrNil()
}
