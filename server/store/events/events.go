package events

import (
	"context"

	"github.com/doug-martin/goqu/v9"

	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
	"github.com/conveyorci/conveyor/server/store"
)

type EventStore struct {
	table *store.Table
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *EventStore {
	return &EventStore{
		table: store.NewTable(db, logFactory, "events", "event"),
	}
}

// Create a new event.
func (d *EventStore) Create(ctx context.Context, txOrNil *store.Tx, event *models.Event) error {
	id, err := d.table.Create(ctx, txOrNil, event)
	if err != nil {
		return err
	}
	event.ID = models.EventID(id)
	return nil
}

// Read an existing event, looking it up by id.
// Returns models.ErrNotFound if the event does not exist.
func (d *EventStore) Read(ctx context.Context, txOrNil *store.Tx, id models.EventID) (*models.Event, error) {
	event := &models.Event{}
	return event, d.table.ReadByID(ctx, txOrNil, uint64(id), event)
}

// Update an existing event with optimistic locking. Overrides all previous values using the supplied model.
// Returns store.ErrOptimisticLockFailed if there is an optimistic lock mismatch.
func (d *EventStore) Update(ctx context.Context, txOrNil *store.Tx, event *models.Event) error {
	return d.table.UpdateByID(ctx, txOrNil, uint64(event.ID), event)
}

// ListByGroupEventID lists all events in a restart lineage, newest first.
func (d *EventStore) ListByGroupEventID(ctx context.Context, txOrNil *store.Tx, groupEventID models.EventID) ([]*models.Event, error) {
	return d.list(ctx, txOrNil, goqu.Ex{"event_group_event_id": groupEventID})
}

// ListByParentEventID lists all events triggered by builds of the given event, newest first.
func (d *EventStore) ListByParentEventID(ctx context.Context, txOrNil *store.Tx, parentEventID models.EventID) ([]*models.Event, error) {
	return d.list(ctx, txOrNil, goqu.Ex{"event_parent_event_id": parentEventID})
}

func (d *EventStore) list(ctx context.Context, txOrNil *store.Tx, where ...goqu.Expression) ([]*models.Event, error) {
	eventsSelect := d.table.Dialect().From(d.table.TableName()).
		Select(&models.Event{}).
		Where(where...)
	var events []*models.Event
	pagination := models.NewPagination(500, nil)
	_, err := d.table.ListIn(ctx, txOrNil, &events, pagination, eventsSelect)
	if err != nil {
		return nil, err
	}
	return events, nil
}
