package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cadencehq/cadence/internal/apierror"
	"github.com/cadencehq/cadence/model"
)

const activityColumns = `activity_id, store_id, type, activity_date, outcome, next_step, next_step_date, order_id, notes, created_at`

func (d Datasource) RecordActivity(ctx context.Context, activity model.Activity) (model.Activity, error) {
	if activity.ActivityID == "" {
		activity.ActivityID = model.GenerateUUIDWithSuffix("act")
	}
	activity.CreatedAt = time.Now()

	var orderID sql.NullString
	if activity.OrderID != "" {
		orderID = sql.NullString{String: activity.OrderID, Valid: true}
	}

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO cadence.activities (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, activity.ActivityID, activity.StoreID, activity.Type, activity.Date, activity.Outcome,
		activity.NextStep, nullTime(activity.NextStepDate), orderID, activity.Notes, activity.CreatedAt)

	if err != nil {
		pqErr, ok := err.(*pq.Error)
		if ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return model.Activity{}, apierror.NewAPIError(apierror.ErrConflict, "Activity with this ID already exists", err)
			default:
				return model.Activity{}, apierror.NewAPIError(apierror.ErrInternalServer, "Database error occurred", err)
			}
		}
		return model.Activity{}, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record activity", err)
	}

	return activity, nil
}

func (d Datasource) GetActivityByID(ctx context.Context, id string) (*model.Activity, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+activityColumns+`
		FROM cadence.activities
		WHERE activity_id = $1
	`, id)

	activity, err := scanActivity(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Activity with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve activity", err)
	}
	return &activity, nil
}

func (d Datasource) GetActivitiesByStore(ctx context.Context, storeID string) ([]model.Activity, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+activityColumns+`
		FROM cadence.activities
		WHERE store_id = $1
		ORDER BY activity_date DESC, created_at DESC
	`, storeID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve activities", err)
	}
	defer rows.Close()

	activities := []model.Activity{}
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan activity data", err)
		}
		activities = append(activities, activity)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating over activities", err)
	}
	return activities, nil
}

func scanActivity(row rowScanner) (model.Activity, error) {
	var activity model.Activity
	var nextStep, orderID, notes sql.NullString
	var nextStepDate sql.NullTime

	err := row.Scan(&activity.ActivityID, &activity.StoreID, &activity.Type, &activity.Date, &activity.Outcome,
		&nextStep, &nextStepDate, &orderID, &notes, &activity.CreatedAt)
	if err != nil {
		return model.Activity{}, err
	}

	activity.NextStep = nextStep.String
	activity.NextStepDate = timePtr(nextStepDate)
	activity.OrderID = orderID.String
	activity.Notes = notes.String
	return activity, nil
}
