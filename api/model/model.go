package model

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/cadencehq/cadence"
	"github.com/cadencehq/cadence/engine"
	"github.com/cadencehq/cadence/model"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate accepts a calendar date (2024-11-01) or an RFC 3339 timestamp.
// Calendar dates are taken as midnight UTC.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("please format dates as 'YYYY-MM-DD' or 'YYYY-MM-DDTHH:MM:SS+00:00' (e.g., 2024-11-01)")
}

func validateDate(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("invalid type for date")
	}
	if s == "" {
		return nil
	}
	_, err := ParseDate(s)
	return err
}

func prefixed(prefix string) validation.Rule {
	return validation.Match(regexp.MustCompile("^" + prefix + "_")).Error("must start with " + prefix + "_")
}

var (
	storeStatuses = []interface{}{string(model.StoreStatusNew), string(model.StoreStatusContacted), string(model.StoreStatusQualified), string(model.StoreStatusCustomer), string(model.StoreStatusInactive)}
	orderTypes    = []interface{}{string(model.OrderTypeFirst), string(model.OrderTypeReorder)}
	activityTypes = []interface{}{string(model.ActivityTypeCall), string(model.ActivityTypeVisit), string(model.ActivityTypeEmail), string(model.ActivityTypeText)}
	outcomes      = []interface{}{string(model.OutcomeInterested), string(model.OutcomeMaybeLater), string(model.OutcomeNotAFit), string(model.OutcomeOrdered)}
	eventTables   = []interface{}{cadence.TableStores, cadence.TableOrders, cadence.TableActivities}
	scheduleModes = []interface{}{string(engine.ModeDaily), string(engine.ModeWeekly)}
)

func (s *CreateStore) ValidateCreateStore() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.StoreID, prefixed("str")),
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Status, validation.In(storeStatuses...)),
	)
}

func (o *RecordOrder) ValidateRecordOrder() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.OrderID, prefixed("ord")),
		validation.Field(&o.StoreID, validation.Required),
		validation.Field(&o.BrandName, validation.Required),
		validation.Field(&o.OrderDate, validation.Required, validation.By(validateDate)),
		validation.Field(&o.Cases, validation.Required, validation.Min(1)),
		validation.Field(&o.OrderType, validation.In(orderTypes...)),
	)
}

func (o *ActivityOrder) ValidateActivityOrder() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.OrderID, prefixed("ord")),
		validation.Field(&o.BrandName, validation.Required),
		validation.Field(&o.OrderDate, validation.By(validateDate)),
		validation.Field(&o.Cases, validation.Required, validation.Min(1)),
		validation.Field(&o.OrderType, validation.In(orderTypes...)),
	)
}

func (a *LogActivity) ValidateLogActivity() error {
	ordered := a.Outcome == string(model.OutcomeOrdered)
	return validation.ValidateStruct(a,
		validation.Field(&a.ActivityID, prefixed("act")),
		validation.Field(&a.StoreID, validation.Required),
		validation.Field(&a.Type, validation.Required, validation.In(activityTypes...)),
		validation.Field(&a.Date, validation.Required, validation.By(validateDate)),
		validation.Field(&a.Outcome, validation.Required, validation.In(outcomes...)),
		validation.Field(&a.NextStepDate, validation.By(validateDate)),
		validation.Field(&a.Order,
			validation.When(ordered && a.OrderID == "", validation.Required.Error("an ordered activity needs order_id or order details")),
			validation.When(!ordered, validation.Nil.Error("order details are only accepted when the outcome is ordered")),
			validation.When(a.OrderID != "", validation.Nil.Error("pass either order_id or order, not both")),
			validation.By(func(value interface{}) error {
				o, ok := value.(*ActivityOrder)
				if !ok || o == nil {
					return nil
				}
				return o.ValidateActivityOrder()
			}),
		),
	)
}

func (e *RecordEvent) ValidateRecordEvent() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Table, validation.Required, validation.In(eventTables...)),
		validation.Field(&e.RecordID, validation.Required),
	)
}

func (t *Tick) ValidateTick() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Mode, validation.Required, validation.In(scheduleModes...)),
		validation.Field(&t.Now, validation.By(validateDate)),
	)
}

func (s *CreateStore) ToStore() model.Store {
	return model.Store{
		StoreID:  s.StoreID,
		Name:     s.Name,
		City:     s.City,
		Category: s.Category,
		Status:   model.StoreStatus(s.Status),
		MetaData: s.MetaData,
	}
}

func (o *RecordOrder) ToOrder() (model.Order, error) {
	date, err := ParseDate(o.OrderDate)
	if err != nil {
		return model.Order{}, err
	}
	return model.Order{
		OrderID:   o.OrderID,
		StoreID:   o.StoreID,
		BrandName: o.BrandName,
		Category:  o.Category,
		OrderDate: date,
		Cases:     o.Cases,
		OrderType: model.OrderType(o.OrderType),
		MetaData:  o.MetaData,
	}, nil
}

// ToActivity converts the request into the activity and, for ordered outcomes with inline
// details, the order to create alongside it.
func (a *LogActivity) ToActivity() (model.Activity, *model.Order, error) {
	date, err := ParseDate(a.Date)
	if err != nil {
		return model.Activity{}, nil, err
	}
	activity := model.Activity{
		ActivityID: a.ActivityID,
		StoreID:    a.StoreID,
		Type:       model.ActivityType(a.Type),
		Date:       date,
		Outcome:    model.ActivityOutcome(a.Outcome),
		NextStep:   a.NextStep,
		OrderID:    a.OrderID,
		Notes:      a.Notes,
	}
	if a.NextStepDate != "" {
		next, err := ParseDate(a.NextStepDate)
		if err != nil {
			return model.Activity{}, nil, err
		}
		activity.NextStepDate = &next
	}
	if a.Order == nil {
		return activity, nil, nil
	}

	order := model.Order{
		OrderID:   a.Order.OrderID,
		StoreID:   a.StoreID,
		BrandName: a.Order.BrandName,
		Category:  a.Order.Category,
		OrderDate: date,
		Cases:     a.Order.Cases,
		OrderType: model.OrderType(a.Order.OrderType),
		MetaData:  a.Order.MetaData,
	}
	if a.Order.OrderDate != "" {
		if order.OrderDate, err = ParseDate(a.Order.OrderDate); err != nil {
			return model.Activity{}, nil, err
		}
	}
	return activity, &order, nil
}

func (e *RecordEvent) ToRecordEvent() cadence.RecordEvent {
	return cadence.RecordEvent{Table: e.Table, RecordID: e.RecordID}
}

// ToTick converts the request. A tick without a time is stamped when it is queued.
func (t *Tick) ToTick() (cadence.Tick, error) {
	tick := cadence.Tick{Mode: engine.Mode(t.Mode)}
	if t.Now == "" {
		return tick, nil
	}
	now, err := ParseDate(t.Now)
	if err != nil {
		return cadence.Tick{}, err
	}
	tick.Now = now
	return tick, nil
}
