package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cadencehq/cadence/internal/apierror"
	"github.com/cadencehq/cadence/model"
)

const storeCacheTTL = 5 * time.Minute

func storeCacheKey(id string) string {
	return fmt.Sprintf("store:%s", id)
}

func (d Datasource) CreateStore(ctx context.Context, store model.Store) (model.Store, error) {
	metaDataJSON, err := json.Marshal(store.MetaData)
	if err != nil {
		return model.Store{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	if store.StoreID == "" {
		store.StoreID = model.GenerateUUIDWithSuffix("str")
	}
	if store.Status == "" {
		store.Status = model.StoreStatusNew
	}
	store.CreatedAt = time.Now()

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO cadence.stores (store_id, name, city, category, status, last_contact_at, next_action_date, created_at, meta_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, store.StoreID, store.Name, store.City, store.Category, store.Status,
		nullTime(store.LastContactAt), nullTime(store.NextActionDate), store.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Store{}, apierror.NewAPIError(apierror.ErrConflict, "Store with this ID already exists", err)
			default:
				return model.Store{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Store{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create store", err)
	}

	return store, nil
}

func (d Datasource) GetStoreByID(ctx context.Context, id string) (*model.Store, error) {
	if d.Cache != nil {
		var cached model.Store
		if err := d.Cache.Get(ctx, storeCacheKey(id), &cached); err == nil && cached.StoreID == id {
			return &cached, nil
		}
	}

	row := d.Conn.QueryRowContext(ctx, `
		SELECT store_id, name, city, category, status, last_contact_at, next_action_date, first_customer_at, created_at, meta_data
		FROM cadence.stores
		WHERE store_id = $1
	`, id)

	store, err := scanStore(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Store with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve store", err)
	}

	if d.Cache != nil {
		_ = d.Cache.Set(ctx, storeCacheKey(id), store, storeCacheTTL)
	}
	return &store, nil
}

func (d Datasource) GetAllStores(ctx context.Context, limit, offset int) ([]model.Store, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT store_id, name, city, category, status, last_contact_at, next_action_date, first_customer_at, created_at, meta_data
		FROM cadence.stores
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve stores", err)
	}
	defer rows.Close()

	stores := []model.Store{}
	for rows.Next() {
		store, err := scanStore(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan store data", err)
		}
		stores = append(stores, store)
	}

	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over stores", err)
	}

	return stores, nil
}

// GetStoreIDs returns every store ID. Used to suggest the intended store for orphan records.
func (d Datasource) GetStoreIDs(ctx context.Context) ([]string, error) {
	rows, err := d.Conn.QueryContext(ctx, `SELECT store_id FROM cadence.stores`)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve store IDs", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan store ID", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over store IDs", err)
	}
	return ids, nil
}

// UpdateStoreStatus writes the status column. first_customer_at is write-once: an
// existing value is never overwritten.
func (d Datasource) UpdateStoreStatus(ctx context.Context, id string, status model.StoreStatus, firstCustomerAt *time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE cadence.stores
		SET status = $2, first_customer_at = COALESCE(first_customer_at, $3)
		WHERE store_id = $1
	`, id, status, nullTime(firstCustomerAt))
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update store status", err)
	}
	return d.afterStoreUpdate(ctx, id, result)
}

func (d Datasource) UpdateStoreNextAction(ctx context.Context, id string, nextActionDate *time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE cadence.stores
		SET next_action_date = $2
		WHERE store_id = $1
	`, id, nullTime(nextActionDate))
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update next action date", err)
	}
	return d.afterStoreUpdate(ctx, id, result)
}

// TouchStoreContact moves last_contact_at forward. Backfilled activities never move it back.
func (d Datasource) TouchStoreContact(ctx context.Context, id string, at time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE cadence.stores
		SET last_contact_at = GREATEST(COALESCE(last_contact_at, $2), $2)
		WHERE store_id = $1
	`, id, at)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update last contact date", err)
	}
	return d.afterStoreUpdate(ctx, id, result)
}

func (d Datasource) afterStoreUpdate(ctx context.Context, id string, result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Store with ID '%s' not found", id), nil)
	}
	if d.Cache != nil {
		_ = d.Cache.Delete(ctx, storeCacheKey(id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStore(row rowScanner) (model.Store, error) {
	var store model.Store
	var lastContact, nextAction, firstCustomer sql.NullTime
	var city, category sql.NullString
	var metaDataJSON []byte

	err := row.Scan(&store.StoreID, &store.Name, &city, &category, &store.Status,
		&lastContact, &nextAction, &firstCustomer, &store.CreatedAt, &metaDataJSON)
	if err != nil {
		return model.Store{}, err
	}

	store.City = city.String
	store.Category = category.String
	store.LastContactAt = timePtr(lastContact)
	store.NextActionDate = timePtr(nextAction)
	store.FirstCustomerAt = timePtr(firstCustomer)
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &store.MetaData); err != nil {
			return model.Store{}, err
		}
	}
	return store, nil
}
