package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/conveyorci/conveyor/common/gerror"
	"github.com/conveyorci/conveyor/common/logger"
	"github.com/conveyorci/conveyor/common/models"
)

// Resource is implemented by every model persisted through a Table.
type Resource interface {
	models.MutableResource
	Validate() error
}

type queryBuilder interface {
	ToSQL() (string, []interface{}, error)
}

type tableMarker struct {
	ID        uint64      `json:"id"`
	CreatedAt models.Time `json:"created_at"`
}

// Table provides the standard persistence operations for one resource table.
// IDs are numeric and allocated by the database on insert; all other columns
// follow the "<prefix>_<name>" convention.
type Table struct {
	logger.Log
	db               *DB
	tableName        string
	idColName        string
	createdAtColName string
	etagColName      string
}

func NewTable(db *DB, logFactory logger.LogFactory, tableName string, columnPrefix string) *Table {
	return &Table{
		db:               db,
		tableName:        tableName,
		idColName:        columnPrefix + "_id",
		createdAtColName: columnPrefix + "_created_at",
		etagColName:      columnPrefix + "_etag",
		Log:              logFactory(fmt.Sprintf("%s_table", tableName)),
	}
}

// Dialect returns the goqu dialect (aka SQL Driver e.g. sqlite3, postgres etc.) in use.
func (d *Table) Dialect() goqu.DialectWrapper {
	return goqu.Dialect(d.db.DriverName())
}

func (d *Table) TableName() string {
	return d.tableName
}

// Create inserts a new resource and returns the id the database allocated
// for it. The caller is responsible for writing the id back onto the model.
// Returns ErrAlreadyExists if a resource with matching unique properties already exists.
func (d *Table) Create(ctx context.Context, txOrNil *Tx, resource Resource) (id uint64, err error) {
	err = resource.Validate()
	if err != nil {
		return 0, fmt.Errorf("error resource invalid: %w", err)
	}
	hash, err := hashstructure.Hash(resource, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("error calculating resource hash: %w", err)
	}
	resource.SetETag(models.ETag(fmt.Sprintf("\"%x\"", hash)))
	defer func() {
		if err != nil {
			resource.SetETag("")
		}
	}()
	err = d.db.Write(txOrNil, func(db Writer) error {
		ds := d.LogInsert(db.Insert(d.tableName).Rows(resource))
		if d.db.Driver == Postgres {
			// Postgres allocates ids from a sequence; read it back via RETURNING
			query, args, err := ds.Returning(goqu.C(d.idColName)).ToSQL()
			if err != nil {
				return fmt.Errorf("error generating query: %w", err)
			}
			found, err := db.ScanValContext(ctx, &id, query, args...)
			if err != nil {
				return fmt.Errorf("error executing create query: %w", MakeStandardDBError(err))
			}
			if !found {
				return fmt.Errorf("error executing create query: no id returned")
			}
			return nil
		}
		res, err := ds.Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing create query: %w", MakeStandardDBError(err))
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("error reading inserted id: %w", err)
		}
		id = uint64(lastID)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ReadByID reads an existing resource, looking it up by its numeric id.
// Returns gerror.ErrNotFound if the resource does not exist.
func (d *Table) ReadByID(ctx context.Context, txOrNil *Tx, id uint64, resource Resource) error {
	return d.ReadWhere(ctx, txOrNil, resource, goqu.Ex{d.idColName: id})
}

// ReadWhere reads an existing resource, looking it up using the supplied where clauses.
// Returns gerror.ErrNotFound if the resource does not exist.
func (d *Table) ReadWhere(ctx context.Context, txOrNil *Tx, resource Resource, where ...goqu.Expression) error {
	return d.ReadIn(ctx, txOrNil, resource, d.Dialect().From(d.tableName).Select(resource).Where(where...))
}

// ReadIn reads an existing resource from the supplied select dataset.
// Returns gerror.ErrNotFound if the resource does not exist.
func (d *Table) ReadIn(ctx context.Context, txOrNil *Tx, resource Resource, ds *goqu.SelectDataset) error {
	ds = ds.Limit(1)
	return d.db.Read(txOrNil, func(db Reader) error {
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.LogQuery(query, args)
		found, err := db.ScanStructContext(ctx, resource, query, args...)
		if err != nil {
			return MakeStandardDBError(err)
		}
		if !found {
			return gerror.NewErrNotFound("Not Found")
		}
		return nil
	})
}

// LockRowForUpdate takes out an exclusive row lock on the row for the specified resource id.
// This function must be called within a transaction, and will block other transactions from locking, updating
// or deleting the row until this transaction ends.
// Returns gerror.ErrNotFound if the resource does not exist.
func (d *Table) LockRowForUpdate(ctx context.Context, tx *Tx, id uint64) error {
	if tx == nil {
		return fmt.Errorf("error locking database row %d: no transaction specified", id)
	}
	// If database doesn't support row locking then assume we have table locking by default and don't need row locking
	if !d.db.SupportsRowLevelLocking() {
		return nil
	}
	return d.db.Read(tx, func(db Reader) error {
		ds := d.Dialect().From(d.tableName).Select(goqu.C(d.idColName)).Where(goqu.Ex{d.idColName: id}).ForUpdate(exp.Wait).Limit(1)
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.LogQuery(query, args)

		var resultID uint64
		found, err := db.ScanValContext(ctx, &resultID, query, args...)
		if err != nil {
			return MakeStandardDBError(err)
		}
		if !found {
			return gerror.NewErrNotFound("Not Found")
		}
		return nil
	})
}

// UpdateByID updates an existing resource identified by id, overriding all
// previous values with the supplied model.
// Applies optimistic locking: returns ErrOptimisticLockFailed if the
// resource's ETag no longer matches the stored row, unless the model's ETag
// is models.ETagAny.
func (d *Table) UpdateByID(ctx context.Context, txOrNil *Tx, id uint64, resource Resource) (err error) {
	err = resource.Validate()
	if err != nil {
		return fmt.Errorf("error resource invalid: %w", err)
	}
	where := []goqu.Expression{goqu.Ex{d.idColName: id}}
	origETag := resource.GetETag()
	hash, err := hashstructure.Hash(resource, hashstructure.FormatV2, nil)
	if err != nil {
		return fmt.Errorf("error calculating resource hash: %w", err)
	}
	resource.SetETag(models.ETag(fmt.Sprintf("\"%x\"", hash)))
	if origETag != models.ETagAny {
		where = append(where, goqu.Ex{d.etagColName: origETag})
	}
	defer func() {
		if err != nil {
			resource.SetETag(origETag)
		}
	}()
	return d.db.Write(txOrNil, func(db Writer) error {
		res, err := d.LogUpdate(db.Update(d.tableName).Set(resource).Where(where...)).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing update query: %w", MakeStandardDBError(err))
		}
		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error reading rows affected: %w", MakeStandardDBError(err))
		}
		if rowsAffected == 0 {
			return gerror.NewErrOptimisticLockFailed("ETag does not match")
		}
		return nil
	})
}

// DeleteByID idempotently deletes one resource by id.
func (d *Table) DeleteByID(ctx context.Context, txOrNil *Tx, id uint64) error {
	return d.DeleteWhere(ctx, txOrNil, goqu.Ex{d.idColName: id})
}

// DeleteWhere idempotently deletes one or more resources that match the supplied where clauses.
func (d *Table) DeleteWhere(ctx context.Context, txOrNil *Tx, where ...goqu.Expression) error {
	return d.db.Write(txOrNil, func(db Writer) error {
		_, err := d.logDelete(db.Delete(d.tableName).Where(where...)).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("error executing delete query: %w", MakeStandardDBError(err))
		}
		return nil
	})
}

// ListIn lists resources in the specified select dataset with pagination.
// Resources are listed in order of the newest creation date first (with id being the tie-breaker); any
// ordering specified in the supplied dataset is ignored.
// resources must be a pointer to a slice of the resource type e.g. &[]*models.Build
func (d *Table) ListIn(ctx context.Context, txOrNil *Tx, resources interface{}, pagination models.Pagination, ds *goqu.SelectDataset) (*models.Cursor, error) {
	slicePtr := reflect.TypeOf(resources)
	if slicePtr.Kind() != reflect.Ptr {
		d.Panicf("expected pointer to slice, found: %T", resources)
	}
	sliceT := slicePtr.Elem()
	sliceV := reflect.ValueOf(resources).Elem()
	if sliceT.Kind() != reflect.Slice {
		d.Panicf("expected slice, found: %T", resources)
	}

	err := d.db.Read(txOrNil, func(db Reader) error {
		ds = ds.Limit(uint(pagination.Limit + 1))
		if pagination.Cursor == nil {
			ds = ds.Order(goqu.I(d.createdAtColName).Desc()).OrderAppend(goqu.I(d.idColName).Desc())
		} else {
			var decodedMarker tableMarker
			err := json.Unmarshal([]byte(pagination.Cursor.Marker), &decodedMarker)
			if err != nil {
				return fmt.Errorf("error JSON decoding cursor marker: %w", err)
			}
			if pagination.Cursor.Direction == models.CursorDirectionPrev {
				// Create a query in the opposite (i.e. oldest first) order
				ds = ds.
					Where(goqu.C(d.createdAtColName).Gte(decodedMarker.CreatedAt)).
					Where(
						goqu.Or(
							goqu.And(
								goqu.C(d.createdAtColName).Eq(decodedMarker.CreatedAt),
								goqu.C(d.idColName).Gt(decodedMarker.ID),
							),
							goqu.C(d.createdAtColName).Gt(decodedMarker.CreatedAt),
						)).
					Order(goqu.I(d.createdAtColName).Asc()).OrderAppend(goqu.I(d.idColName).Asc())

				// Nest the reversed query in a descending-order query to make it correctly ordered,
				// while forcing evaluation of the entire query. Column names mentioned here must
				// exactly match the column name aliases produced by the inner query.
				ds = d.Dialect().From(ds).
					Select(goqu.I("*")).
					Order(goqu.C(d.createdAtColName).Desc()).
					OrderAppend(goqu.C(d.idColName).Desc())
			} else {
				ds = ds.
					Where(goqu.C(d.createdAtColName).Lte(decodedMarker.CreatedAt)).
					Where(
						goqu.Or(
							goqu.And(
								goqu.C(d.createdAtColName).Eq(decodedMarker.CreatedAt),
								goqu.C(d.idColName).Lt(decodedMarker.ID),
							),
							goqu.C(d.createdAtColName).Lt(decodedMarker.CreatedAt),
						)).
					Order(goqu.I(d.createdAtColName).Desc()).OrderAppend(goqu.I(d.idColName).Desc())
			}
		}
		query, args, err := ds.ToSQL()
		if err != nil {
			return fmt.Errorf("error generating query: %w", err)
		}
		d.LogQuery(query, args)
		return db.ScanStructsContext(ctx, resources, query, args...)
	})
	if err != nil {
		return nil, MakeStandardDBError(err)
	}

	var cursor *models.Cursor
	if sliceV.Len() > 0 {
		cursor = &models.Cursor{}
		if pagination.Cursor != nil {
			if pagination.Cursor.Direction == models.CursorDirectionNext {
				data, err := d.makeMarker(sliceV.Index(0))
				if err != nil {
					return nil, err
				}
				cursor.Prev = &models.DirectionalCursor{
					Direction: models.CursorDirectionPrev,
					Marker:    data,
				}
			} else {
				data, err := d.makeMarker(sliceV.Index(sliceV.Len() - 1))
				if err != nil {
					return nil, err
				}
				cursor.Next = &models.DirectionalCursor{
					Direction: models.CursorDirectionNext,
					Marker:    data,
				}
			}
		}

		// If we read one more record than needed we know there is a next page
		if sliceV.Len() > pagination.Limit {
			if pagination.Cursor == nil || pagination.Cursor.Direction == models.CursorDirectionNext {
				sliceV.Set(sliceV.Slice(0, pagination.Limit))
				data, err := d.makeMarker(sliceV.Index(pagination.Limit - 1))
				if err != nil {
					return nil, err
				}
				cursor.Next = &models.DirectionalCursor{
					Direction: models.CursorDirectionNext,
					Marker:    data,
				}
			} else {
				sliceV.Set(sliceV.Slice(1, pagination.Limit+1))
				data, err := d.makeMarker(sliceV.Index(0))
				if err != nil {
					return nil, err
				}
				cursor.Prev = &models.DirectionalCursor{
					Direction: models.CursorDirectionPrev,
					Marker:    data,
				}
			}
		}
	}

	return cursor, nil
}

// makeMarker builds a pagination marker from a resource's promoted ID and
// CreatedAt fields.
func (d *Table) makeMarker(elem reflect.Value) (string, error) {
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	marker := &tableMarker{
		ID:        elem.FieldByName("ID").Uint(),
		CreatedAt: elem.FieldByName("CreatedAt").Interface().(models.Time),
	}
	data, err := json.Marshal(marker)
	if err != nil {
		return "", fmt.Errorf("error JSON encoding cursor marker: %w", err)
	}
	return string(data), nil
}

func MakeStandardDBError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrConstraint &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return gerror.NewErrAlreadyExists("Resource already exists").Wrap(sqliteErr)
		}
		if sqliteErr.Code == sqlite3.ErrNotFound {
			return gerror.NewErrNotFound("Resource not found").Wrap(sqliteErr)
		}
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		// 23505 -> unique_violation
		if pgErr.Code == "23505" {
			return gerror.NewErrAlreadyExists("Resource already exists").Wrap(pgErr)
		}
		// P0002 -> no_data_found
		if pgErr.Code == "P0002" {
			return gerror.NewErrNotFound("Resource not found").Wrap(pgErr)
		}
	}
	return err
}

// LogSelect logs a select query via the configured logger.
func (d *Table) LogSelect(ds *goqu.SelectDataset) *goqu.SelectDataset {
	d.logQueryDS(ds)
	return ds
}

// LogInsert logs an insert query via the configured logger.
func (d *Table) LogInsert(ds *goqu.InsertDataset) *goqu.InsertDataset {
	d.logQueryDS(ds)
	return ds
}

// LogUpdate logs an update query via the configured logger.
func (d *Table) LogUpdate(ds *goqu.UpdateDataset) *goqu.UpdateDataset {
	d.logQueryDS(ds)
	return ds
}

// logDelete logs a delete query via the configured logger.
func (d *Table) logDelete(ds *goqu.DeleteDataset) *goqu.DeleteDataset {
	d.logQueryDS(ds)
	return ds
}

// logQueryDS generates and logs the raw SQL of a query to the configured logger.
func (d *Table) logQueryDS(ds queryBuilder) {
	query, args, err := ds.ToSQL()
	if err != nil {
		d.Errorf("Error generating query: %v", err)
		return
	}
	d.LogQuery(query, args)
}

// LogQuery logs a SQL query and args to the configured logger.
func (d *Table) LogQuery(query string, args []interface{}) {
	d.WithFields(logger.Fields{"query": query, "args": args}).Trace()
}
