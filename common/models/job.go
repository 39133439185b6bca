package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

type JobState string

const (
	JobStateEnabled  JobState = "ENABLED"
	JobStateDisabled JobState = "DISABLED"
)

func (s JobState) Valid() bool {
	return s == JobStateEnabled || s == JobStateDisabled
}

func (s *JobState) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	str, ok := src.(string)
	if !ok {
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	*s = JobState(str)
	return nil
}

func (s JobState) Value() (driver.Value, error) {
	return string(s), nil
}

// Job is a named unit of work within a pipeline. Pull-request jobs are named
// "PR-<n>:<name>"; the portion after the colon is the canonical name used
// for workflow-graph lookups.
type Job struct {
	JobMetadata
	JobData
}

type JobMetadata struct {
	ID        JobID `json:"id" goqu:"skipinsert,skipupdate" db:"job_id"`
	CreatedAt Time  `json:"created_at" goqu:"skipupdate" db:"job_created_at"`
	UpdatedAt Time  `json:"updated_at" db:"job_updated_at"`
	ETag      ETag  `json:"etag" db:"job_etag" hash:"ignore"`
}

type JobData struct {
	PipelineID PipelineID `json:"pipeline_id" db:"job_pipeline_id"`
	Name       string     `json:"name" db:"job_name"`
	State      JobState   `json:"state" db:"job_state"`
}

func NewJob(now Time, data JobData) *Job {
	return &Job{
		JobMetadata: JobMetadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
		JobData: data,
	}
}

func (m *Job) GetCreatedAt() Time  { return m.CreatedAt }
func (m *Job) GetUpdatedAt() Time  { return m.UpdatedAt }
func (m *Job) SetUpdatedAt(t Time) { m.UpdatedAt = t }
func (m *Job) GetETag() ETag       { return m.ETag }
func (m *Job) SetETag(eTag ETag)   { m.ETag = eTag }

func (m *Job) Enabled() bool {
	return m.State == JobStateEnabled
}

func (m *Job) Validate() error {
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
	if m.Name == "" {
		result = multierror.Append(result, errors.New("error name must be set"))
	}
	if !m.State.Valid() {
		result = multierror.Append(result, errors.New("error state is invalid"))
	}
	return result.ErrorOrNil()
}
