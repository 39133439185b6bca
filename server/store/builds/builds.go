package builds

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/store"
)

// terminalStatuses are the statuses a build can never leave.
var terminalStatuses = []models.BuildStatus{
	models.BuildStatusSuccess,
	models.BuildStatusFailure,
	models.BuildStatusAborted,
	models.BuildStatusUnstable,
	models.BuildStatusCollapsed,
}

type BuildStore struct {
	table *store.Table
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *BuildStore {
	return &BuildStore{
		table: store.NewTable(db, logFactory, "builds", "build"),
	}
}

// Create a new build.
func (d *BuildStore) Create(ctx context.Context, txOrNil *store.Tx, build *models.Build) error {
	id, err := d.table.Create(ctx, txOrNil, build)
	if err != nil {
		return err
	}
	build.ID = models.BuildID(id)
	return nil
}

// Read an existing build, looking it up by id.
// Returns models.ErrNotFound if the build does not exist.
func (d *BuildStore) Read(ctx context.Context, txOrNil *store.Tx, id models.BuildID) (*models.Build, error) {
	build := &models.Build{}
	return build, d.table.ReadByID(ctx, txOrNil, uint64(id), build)
}

// Update an existing build with optimistic locking. Overrides all previous values using the supplied model.
// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
func (d *BuildStore) Update(ctx context.Context, txOrNil *store.Tx, build *models.Build) error {
	return d.table.UpdateByID(ctx, txOrNil, uint64(build.ID), build)
}

// Delete removes a build. Idempotent.
func (d *BuildStore) Delete(ctx context.Context, txOrNil *store.Tx, id models.BuildID) error {
	return d.table.DeleteByID(ctx, txOrNil, uint64(id))
}

// LockRowForUpdate takes out an exclusive row lock on the build table row for the specified build.
// This function must be called within a transaction, and will block other transactions from locking, updating
// or deleting the row until this transaction ends.
func (d *BuildStore) LockRowForUpdate(ctx context.Context, tx *store.Tx, id models.BuildID) error {
	return d.table.LockRowForUpdate(ctx, tx, uint64(id))
}

// ListByEventID lists all builds of an event, newest first.
func (d *BuildStore) ListByEventID(ctx context.Context, txOrNil *store.Tx, eventID models.EventID) ([]*models.Build, error) {
	buildsSelect := d.table.Dialect().From(d.table.TableName()).
		Select(&models.Build{}).
		Where(goqu.Ex{"build_event_id": eventID})
	return d.listIn(ctx, txOrNil, buildsSelect)
}

// ListFinishedForEvent lists the builds with a terminal status across all
// events sharing the given group event, newest first.
func (d *BuildStore) ListFinishedForEvent(ctx context.Context, txOrNil *store.Tx, groupEventID models.EventID) ([]*models.Build, error) {
	buildsSelect := d.table.Dialect().From(d.table.TableName()).
		Select(&models.Build{}).
		Join(goqu.T("events"), goqu.On(goqu.Ex{"builds.build_event_id": goqu.I("events.event_id")})).
		Where(goqu.Ex{"events.event_group_event_id": groupEventID}).
		Where(goqu.C("build_status").In(terminalStatuses))
	return d.listIn(ctx, txOrNil, buildsSelect)
}

// ListParallelBuilds lists builds belonging to sibling events: events whose
// parent is parentEventID, excluding events of excludePipelineID.
func (d *BuildStore) ListParallelBuilds(ctx context.Context, txOrNil *store.Tx, parentEventID models.EventID, excludePipelineID models.PipelineID) ([]*models.Build, error) {
	buildsSelect := d.table.Dialect().From(d.table.TableName()).
		Select(&models.Build{}).
		Join(goqu.T("events"), goqu.On(goqu.Ex{"builds.build_event_id": goqu.I("events.event_id")})).
		Where(goqu.Ex{"events.event_parent_event_id": parentEventID}).
		Where(goqu.C("event_pipeline_id").Table("events").Neq(excludePipelineID))
	return d.listIn(ctx, txOrNil, buildsSelect)
}

// LatestCreatedForJob returns the most recently created build for the job
// within the event that is still in CREATED status.
// Returns models.ErrNotFound if there is none.
func (d *BuildStore) LatestCreatedForJob(ctx context.Context, txOrNil *store.Tx, jobID models.JobID, eventID models.EventID) (*models.Build, error) {
	build := &models.Build{}
	buildSelect := d.table.Dialect().From(d.table.TableName()).
		Select(build).
		Where(goqu.Ex{"build_job_id": jobID}).
		Where(goqu.Ex{"build_event_id": eventID}).
		Where(goqu.Ex{"build_status": models.BuildStatusCreated}).
		Order(goqu.I("build_created_at").Desc()).
		OrderAppend(goqu.I("build_id").Desc())
	return build, d.table.ReadIn(ctx, txOrNil, build, buildSelect)
}

// LatestBuildsForGroupEvent returns the newest build per job across all
// events sharing the given group event.
func (d *BuildStore) LatestBuildsForGroupEvent(ctx context.Context, txOrNil *store.Tx, groupEventID models.EventID) ([]*models.Build, error) {
	buildsSelect := d.table.Dialect().From(d.table.TableName()).
		Select(&models.Build{}).
		Join(goqu.T("events"), goqu.On(goqu.Ex{"builds.build_event_id": goqu.I("events.event_id")})).
		Where(goqu.Ex{"events.event_group_event_id": groupEventID})
	builds, err := d.listIn(ctx, txOrNil, buildsSelect)
	if err != nil {
		return nil, err
	}
	// listIn returns newest first, so the first build seen per job wins
	var latest []*models.Build
	seen := make(map[models.JobID]bool)
	for _, build := range builds {
		if seen[build.JobID] {
			continue
		}
		seen[build.JobID] = true
		latest = append(latest, build)
	}
	return latest, nil
}

// candidateListLimit bounds the candidate scans the trigger engine runs;
// graphs with more builds per event than this are not supported.
const candidateListLimit = 500

func (d *BuildStore) listIn(ctx context.Context, txOrNil *store.Tx, buildsSelect *goqu.SelectDataset) ([]*models.Build, error) {
	var builds []*models.Build
	pagination := models.NewPagination(candidateListLimit, nil)
	_, err := d.table.ListIn(ctx, txOrNil, &builds, pagination, buildsSelect)
	if err != nil {
		return nil, err
	}
	return builds, nil
}
