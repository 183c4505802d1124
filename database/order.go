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

const orderColumns = `order_id, store_id, brand_name, category, order_date, cases, order_type, next_reorder_date, created_at, meta_data`

func (d Datasource) RecordOrder(ctx context.Context, order model.Order) (model.Order, error) {
	metaDataJSON, err := json.Marshal(order.MetaData)
	if err != nil {
		return model.Order{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal metadata", err)
	}

	if order.OrderID == "" {
		order.OrderID = model.GenerateUUIDWithSuffix("ord")
	}
	order.CreatedAt = time.Now()

	_, err = d.Conn.ExecContext(ctx, `
		INSERT INTO cadence.orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, order.OrderID, order.StoreID, order.BrandName, order.Category, order.OrderDate, order.Cases,
		order.OrderType, nullTime(order.NextReorderDate), order.CreatedAt, metaDataJSON)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Order{}, apierror.NewAPIError(apierror.ErrConflict, "Order with this ID already exists", err)
			default:
				return model.Order{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Order{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record order", err)
	}

	return order, nil
}

func (d Datasource) GetOrderByID(ctx context.Context, id string) (*model.Order, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM cadence.orders
		WHERE order_id = $1
	`, id)

	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Order with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve order", err)
	}
	return &order, nil
}

// GetOrdersByStore returns a store's orders, most recent first.
func (d Datasource) GetOrdersByStore(ctx context.Context, storeID string) ([]model.Order, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM cadence.orders
		WHERE store_id = $1
		ORDER BY order_date DESC, created_at DESC
	`, storeID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve orders", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan order data", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over orders", err)
	}
	return orders, nil
}

// UpdateOrderNextReorderDate is the only mutation orders allow, used when the reorder policy changes.
func (d Datasource) UpdateOrderNextReorderDate(ctx context.Context, id string, nextReorderDate time.Time) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE cadence.orders
		SET next_reorder_date = $2
		WHERE order_id = $1
	`, id, nextReorderDate)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update next reorder date", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Order with ID '%s' not found", id), nil)
	}
	return nil
}

func scanOrder(row rowScanner) (model.Order, error) {
	var order model.Order
	var brand, category sql.NullString
	var nextReorder sql.NullTime
	var metaDataJSON []byte

	err := row.Scan(&order.OrderID, &order.StoreID, &brand, &category, &order.OrderDate, &order.Cases,
		&order.OrderType, &nextReorder, &order.CreatedAt, &metaDataJSON)
	if err != nil {
		return model.Order{}, err
	}

	order.BrandName = brand.String
	order.Category = category.String
	order.NextReorderDate = timePtr(nextReorder)
	if len(metaDataJSON) > 0 {
		if err := json.Unmarshal(metaDataJSON, &order.MetaData); err != nil {
			return model.Order{}, err
		}
	}
	return order, nil
}
