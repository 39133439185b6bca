package pipeline

import (
	"context"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/dto"
	"github.com/conveyorci/conveyor/server/services/encryption"
	"github.com/conveyorci/conveyor/server/store"
)

type PipelineService struct {
	db            *store.DB
	pipelineStore store.PipelineStore
	tokenSealer   *encryption.TokenSealer
	logger.Log
}

func NewPipelineService(
	db *store.DB,
	pipelineStore store.PipelineStore,
	tokenSealer *encryption.TokenSealer,
	logFactory logger.LogFactory,
) *PipelineService {
	return &PipelineService{
		db:            db,
		pipelineStore: pipelineStore,
		tokenSealer:   tokenSealer,
		Log:           logFactory("PipelineService"),
	}
}

// Read an existing pipeline, looking it up by id.
// Returns models.ErrNotFound if the pipeline does not exist.
func (s *PipelineService) Read(ctx context.Context, txOrNil *store.Tx, id models.PipelineID) (*models.Pipeline, error) {
	return s.pipelineStore.Read(ctx, txOrNil, id)
}

// Admin returns the pipeline's admin principal. The returned UnsealToken
// closure decrypts the stored SCM token on demand; the clear token is scoped
// to a single SCM call and never logged.
func (s *PipelineService) Admin(ctx context.Context, pipeline *models.Pipeline) *dto.PipelineAdmin {
	sealed := pipeline.AdminTokenSealed
	return &dto.PipelineAdmin{
		Username: pipeline.AdminUsername,
		UnsealToken: func() (string, error) {
			return s.tokenSealer.Unseal(ctx, []byte(sealed))
		},
	}
}
