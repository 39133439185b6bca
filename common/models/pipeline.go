package models

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Pipeline is a versioned CI configuration tied to a source-control
// repository. The engine reads pipelines; it never creates them.
type Pipeline struct {
	PipelineMetadata
	PipelineData
}

type PipelineMetadata struct {
	ID        PipelineID `json:"id" goqu:"skipinsert,skipupdate" db:"pipeline_id"`
	CreatedAt Time       `json:"created_at" goqu:"skipupdate" db:"pipeline_created_at"`
	UpdatedAt Time       `json:"updated_at" db:"pipeline_updated_at"`
	ETag      ETag       `json:"etag" db:"pipeline_etag" hash:"ignore"`
}

type PipelineData struct {
	Name string `json:"name" db:"pipeline_name"`
	// ScmContext names the source-control system the pipeline belongs to,
	// e.g. "github:github.com". Used to pick an SCM from the registry.
	ScmContext string `json:"scm_context" db:"pipeline_scm_context"`
	ScmURI     string `json:"scm_uri" db:"pipeline_scm_uri"`
	// ConfigPipelineID is set when this pipeline's configuration lives in
	// another pipeline's repository.
	ConfigPipelineID *PipelineID `json:"config_pipeline_id" db:"pipeline_config_pipeline_id"`
	// Branch is the default base branch for events without an explicit one.
	Branch string `json:"branch" db:"pipeline_branch"`
	// ChainPR carries the pull-request scope onto downstream jobs when a
	// PR-scoped job triggers them.
	ChainPR bool `json:"chain_pr" db:"pipeline_chain_pr"`
	// AdminUsername is the principal whose sealed SCM token the engine uses
	// when it needs to act on the pipeline's behalf.
	AdminUsername string `json:"admin_username" db:"pipeline_admin_username"`
	// AdminTokenSealed is the admin's SCM token, sealed by the token sealer.
	// Never stored or logged in the clear.
	AdminTokenSealed BinaryBlob `json:"-" db:"pipeline_admin_token_sealed"`
	// WorkflowGraph is the latest parsed graph, snapshotted onto each new
	// event at creation time.
	WorkflowGraph WorkflowGraph `json:"workflow_graph" db:"pipeline_workflow_graph"`
}

func NewPipeline(now Time, data PipelineData) *Pipeline {
	return &Pipeline{
		PipelineMetadata: PipelineMetadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
		PipelineData: data,
	}
}

func (m *Pipeline) GetCreatedAt() Time  { return m.CreatedAt }
func (m *Pipeline) GetUpdatedAt() Time  { return m.UpdatedAt }
func (m *Pipeline) SetUpdatedAt(t Time) { m.UpdatedAt = t }
func (m *Pipeline) GetETag() ETag       { return m.ETag }
func (m *Pipeline) SetETag(eTag ETag)   { m.ETag = eTag }

func (m *Pipeline) Validate() error {
	var result *multierror.Error
	if m.CreatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error created at must be set"))
	}
	if m.UpdatedAt.IsZero() {
		result = multierror.Append(result, errors.New("error updated at must be set"))
	}
	if m.Name == "" {
		result = multierror.Append(result, errors.New("error name must be set"))
	}
	if m.ScmContext == "" {
		result = multierror.Append(result, errors.New("error scm context must be set"))
	}
	if m.ScmURI == "" {
		result = multierror.Append(result, errors.New("error scm uri must be set"))
	}
	if m.ConfigPipelineID != nil && !m.ConfigPipelineID.Valid() {
		result = multierror.Append(result, errors.New("error config pipeline id must be non-zero when set"))
	}
	return result.ErrorOrNil()
}
