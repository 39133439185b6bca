package models

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Build is one execution of one job within one event. Builds are the only
// resources the trigger engine creates, mutates and removes.
type Build struct {
	BuildMetadata
	BuildData
}

type BuildMetadata struct {
	ID        BuildID `json:"id" goqu:"skipinsert,skipupdate" db:"build_id"`
	CreatedAt Time    `json:"created_at" goqu:"skipupdate" db:"build_created_at"`
	UpdatedAt Time    `json:"updated_at" db:"build_updated_at"`
	ETag      ETag    `json:"etag" db:"build_etag" hash:"ignore"`
}

type BuildData struct {
	EventID EventID     `json:"event_id" db:"build_event_id"`
	JobID   JobID       `json:"job_id" db:"build_job_id"`
	Status  BuildStatus `json:"status" db:"build_status"`
	SHA     string      `json:"sha" db:"build_sha"`
	// ParentBuildIDs is the ordered list of upstream builds that caused or
	// contributed to this build; joined-from builds prepend their id here.
	ParentBuildIDs BuildIDList `json:"parent_build_ids" db:"build_parent_build_ids"`
	// ParentBuilds is the ledger of upstream contributions, keyed by
	// pipeline. Joins evaluate against it.
	ParentBuilds      ParentBuilds `json:"parent_builds" db:"build_parent_builds"`
	Username          string       `json:"username" db:"build_username"`
	BaseBranch        string       `json:"base_branch" db:"build_base_branch"`
	ConfigPipelineSHA string       `json:"config_pipeline_sha" db:"build_config_pipeline_sha"`
}

func NewBuild(now Time, data BuildData) *Build {
	return &Build{
		BuildMetadata: BuildMetadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
		BuildData: data,
	}
}

func (m *Build) GetCreatedAt() Time  { return m.CreatedAt }
func (m *Build) GetUpdatedAt() Time  { return m.UpdatedAt }
func (m *Build) SetUpdatedAt(t Time) { m.UpdatedAt = t }
func (m *Build) GetETag() ETag       { return m.ETag }
func (m *Build) SetETag(eTag ETag)   { m.ETag = eTag }

func (m *Build) Validate() error {
	var result *multierror.Error
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if m.UpdatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error updated at must be set"))
	}
	if !m.EventID.Valid() {
		result = multierror.Append(result, errors.New("error event id must be set"))
	}
	if !m.JobID.Valid() {
		result = multierror.Append(result, errors.New("error job id must be set"))
	}
	if !m.Status.Valid() {
		result = multierror.Append(result, errors.New("error status is invalid"))
	}
	if m.SHA == "" {
		result = multierror.Append(result, errors.New("error sha must be set"))
	}
	return result.ErrorOrNil()
}
