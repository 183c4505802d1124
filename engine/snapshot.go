package engine

import "github.com/cadencehq/cadence/model"

// Snapshot is a point-in-time read of the three source tables. The engine never mutates it.
type Snapshot struct {
	Stores     []model.Store    `json:"stores"`
	Orders     []model.Order    `json:"orders"`
	Activities []model.Activity `json:"activities"`
}

func (s Snapshot) Empty() bool {
	return len(s.Stores) == 0 && len(s.Orders) == 0 && len(s.Activities) == 0
}

// index resolves store references by ID and splits orphans out of the record lists.
type index struct {
	stores     map[string]model.Store
	orders     []model.Order
	activities []model.Activity
	orphans    []OrphanRecord
}

func newIndex(snap Snapshot) index {
	idx := index{stores: make(map[string]model.Store, len(snap.Stores))}
	for _, s := range snap.Stores {
		idx.stores[s.StoreID] = s
	}
	for _, o := range snap.Orders {
		if _, ok := idx.stores[o.StoreID]; !ok {
			idx.orphans = append(idx.orphans, OrphanRecord{Kind: RecordKindOrder, RecordID: o.OrderID, StoreID: o.StoreID})
			continue
		}
		idx.orders = append(idx.orders, o)
	}
	for _, a := range snap.Activities {
		if _, ok := idx.stores[a.StoreID]; !ok {
			idx.orphans = append(idx.orphans, OrphanRecord{Kind: RecordKindActivity, RecordID: a.ActivityID, StoreID: a.StoreID})
			continue
		}
		idx.activities = append(idx.activities, a)
	}
	return idx
}

// latestOrders returns the most recent order per store. Older orders are superseded.
func (idx index) latestOrders() map[string]model.Order {
	latest := make(map[string]model.Order)
	for _, o := range idx.orders {
		cur, ok := latest[o.StoreID]
		if !ok || o.After(cur) {
			latest[o.StoreID] = o
		}
	}
	return latest
}

func (idx index) activitiesByStore() map[string][]model.Activity {
	byStore := make(map[string][]model.Activity)
	for _, a := range idx.activities {
		byStore[a.StoreID] = append(byStore[a.StoreID], a)
	}
	return byStore
}
