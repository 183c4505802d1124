package database

import (
	"context"
	"database/sql"

	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/internal/apierror"
	"github.com/cadencehq/cadence/model"
)

// LoadSnapshot reads all three tables inside one read-only repeatable-read transaction
// so the engine sees a consistent view.
func (d Datasource) LoadSnapshot(ctx context.Context) (engine.Snapshot, error) {
	tx, err := d.Conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin snapshot transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := engine.Snapshot{
		Stores:     []model.Store{},
		Orders:     []model.Order{},
		Activities: []model.Activity{},
	}

	storeRows, err := tx.QueryContext(ctx, `
		SELECT store_id, name, city, category, status, last_contact_at, next_action_date, first_customer_at, created_at, meta_data
		FROM cadence.stores
	`)
	if err != nil {
		return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to load stores", err)
	}
	for storeRows.Next() {
		s, err := scanStore(storeRows)
		if err != nil {
			storeRows.Close()
			return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan store data", err)
		}
		snap.Stores = append(snap.Stores, s)
	}
	storeRows.Close()
	if err := storeRows.Err(); err != nil {
		return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over stores", err)
	}

	orderRows, err := tx.QueryContext(ctx, `SELECT `+orderColumns+` FROM cadence.orders`)
	if err != nil {
		return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to load orders", err)
	}
	for orderRows.Next() {
		o, err := scanOrder(orderRows)
		if err != nil {
			orderRows.Close()
			return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan order data", err)
		}
		snap.Orders = append(snap.Orders, o)
	}
	orderRows.Close()
	if err := orderRows.Err(); err != nil {
		return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over orders", err)
	}

	activityRows, err := tx.QueryContext(ctx, `SELECT `+activityColumns+` FROM cadence.activities`)
	if err != nil {
		return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to load activities", err)
	}
	for activityRows.Next() {
		a, err := scanActivity(activityRows)
		if err != nil {
			activityRows.Close()
			return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan activity data", err)
		}
		snap.Activities = append(snap.Activities, a)
	}
	activityRows.Close()
	if err := activityRows.Err(); err != nil {
		return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over activities", err)
	}

	if err := tx.Commit(); err != nil {
		return engine.Snapshot{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to close snapshot transaction", err)
	}
	return snap, nil
}
