package trigger

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/conveyorci/conveyor/common/gerror"
	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/services"
	"github.com/conveyorci/conveyor/server/store"
	"github.com/conveyorci/conveyor/server/store/store_test"
)

// contendedBuildService simulates a concurrent writer on the pending
// build: the first Update loses the ETag race, later ones succeed.
type contendedBuildService struct {
	services.BuildService
	build     *models.Build
	conflicts int
	updates   int
}

func (s *contendedBuildService) LockRowForUpdate(ctx context.Context, tx *store.Tx, id models.BuildID) error {
	return nil
}

func (s *contendedBuildService) Read(ctx context.Context, txOrNil *store.Tx, id models.BuildID) (*models.Build, error) {
	build := *s.build
	return &build, nil
}

func (s *contendedBuildService) Update(ctx context.Context, txOrNil *store.Tx, build *models.Build) error {
	if s.conflicts > 0 {
		s.conflicts--
		return gerror.NewErrOptimisticLockFailed("ETag does not match")
	}
	s.updates++
	s.build = build
	return nil
}

func TestUpdateParentBuildsRetriesLostRace(t *testing.T) {
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)
	db, cleanup, err := store_test.Connect(logFactory)
	require.NoError(t, err)
	defer cleanup()

	pending := &models.Build{
		BuildMetadata: models.BuildMetadata{ID: 100},
		BuildData: models.BuildData{
			EventID:        1,
			JobID:          10,
			Status:         models.BuildStatusCreated,
			ParentBuildIDs: models.BuildIDList{50},
			ParentBuilds:   models.NewSingletonParentBuilds(1, 1, "build-linux", 50),
		},
	}
	buildService := &contendedBuildService{build: pending, conflicts: 1}
	service := NewTriggerService(db, nil, nil, nil, buildService, clock.New(), logFactory)

	contribution := models.NewSingletonParentBuilds(2, 7, "build-macos", 60)
	updated, err := service.updateParentBuilds(context.Background(), pending.ID, contribution, 60)
	require.NoError(t, err)
	require.Equal(t, 1, buildService.updates, "the lost update must be retried exactly once")
	require.Equal(t, models.BuildIDList{60, 50}, updated.ParentBuildIDs)
	require.NotNil(t, updated.ParentBuilds[2])
	require.Equal(t, models.BuildID(60), *updated.ParentBuilds[2].Jobs["build-macos"])
}
