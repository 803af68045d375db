package cmd

import (
	"context"
	"fmt"
	"time"

	"pharmaqueue/internal/adapters/out/memstore"
	"pharmaqueue/internal/adapters/out/postgres"
	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"
)

type sampleItem struct {
	med       string
	unit      string
	qty       float64
	highAlert bool
}

type sampleOrder struct {
	status   order.Status
	priority order.Priority
	room     string
	notes    string
	age      time.Duration
	items    []sampleItem
}

var sampleOrders = []sampleOrder{
	{
		status: order.Submitted, priority: order.Urgent, room: "OR-1", age: 4 * time.Minute,
		items: []sampleItem{{med: "Propofol", unit: "mg", qty: 200}, {med: "Fentanyl", unit: "mcg", qty: 100, highAlert: true}},
	},
	{
		status: order.Submitted, priority: order.Normal, room: "OR-2", age: 35 * time.Minute,
		notes: "second case of the morning",
		items: []sampleItem{{med: "Cefazolin", unit: "g", qty: 2}},
	},
	{
		status: order.Picking, priority: order.Normal, room: "OR-3", age: 52 * time.Minute,
		items: []sampleItem{{med: "Ondansetron", unit: "mg", qty: 4}, {med: "Dexamethasone", unit: "mg", qty: 8}},
	},
	{
		status: order.Checking, priority: order.Urgent, room: "OR-1", age: 11 * time.Minute,
		items: []sampleItem{{med: "Insulin regular", unit: "IU", qty: 10, highAlert: true}},
	},
	{
		status: order.Ready, priority: order.Normal, room: "OR-4", age: 70 * time.Minute,
		items: []sampleItem{{med: "Cefazolin", unit: "g", qty: 1}},
	},
}

var sampleRooms = map[string]int64{"OR-1": 1, "OR-2": 2, "OR-3": 3, "OR-4": 4}

// SeedMemory fills an in-memory store with the sample queue.
func SeedMemory(ctx context.Context, store *memstore.Store, actor kernel.UUID, now time.Time) error {
	store.UpsertProfile(actor, "Demo Pharmacist")
	store.SetSLAConfigs(
		sla.Config{Priority: order.Normal, BudgetMinutes: 60, WarningThresholdPercent: sla.DefaultWarningThresholdPercent},
		sla.Config{Priority: order.Urgent, BudgetMinutes: 15, WarningThresholdPercent: sla.DefaultWarningThresholdPercent},
	)

	medIDs := make(map[string]int64)
	for _, sample := range sampleOrders {
		in := memstore.NewOrder{
			Status:    sample.status,
			Priority:  sample.priority,
			RoomID:    sampleRooms[sample.room],
			Notes:     sample.notes,
			CreatedBy: actor,
			CreatedAt: now.Add(-sample.age),
		}
		for _, item := range sample.items {
			if _, found := medIDs[item.med]; !found {
				medIDs[item.med] = int64(len(medIDs) + 1)
			}
			in.Items = append(in.Items, order.Item{
				MedID:     medIDs[item.med],
				MedName:   item.med,
				Qty:       item.qty,
				Unit:      item.unit,
				HighAlert: item.highAlert,
			})
		}
		if _, err := store.CreateOrder(ctx, in); err != nil {
			return fmt.Errorf("seed order for %s: %w", sample.room, err)
		}
	}
	return nil
}

// SeedDatabase writes the sample queue in one transaction and returns the
// number of orders created. Meant for empty databases: the medication
// catalog is not deduplicated across runs.
func SeedDatabase(ctx context.Context, factory *postgres.GormUnitOfWorkFactory, actor kernel.UUID, now time.Time) (int, error) {
	created := 0
	err := factory.Do(ctx, func(uow *postgres.GormUnitOfWork) error {
		repo := uow.OrderRepository()
		if err := repo.UpsertProfile(ctx, actor, "pharmacy", "Demo Pharmacist"); err != nil {
			return err
		}

		medIDs := make(map[string]int64)
		for _, sample := range sampleOrders {
			roomID, err := repo.AddRoom(ctx, sample.room)
			if err != nil {
				return err
			}
			by := actor
			o := &order.Order{
				Status:    sample.status,
				Priority:  sample.priority,
				RoomID:    roomID,
				Notes:     sample.notes,
				CreatedBy: &by,
				CreatedAt: now.Add(-sample.age),
			}
			for _, item := range sample.items {
				medID, found := medIDs[item.med]
				if !found {
					if medID, err = repo.AddMed(ctx, item.med, item.unit, item.highAlert); err != nil {
						return err
					}
					medIDs[item.med] = medID
				}
				o.Items = append(o.Items, order.Item{MedID: medID, Qty: item.qty, Unit: item.unit, HighAlert: item.highAlert})
			}
			if err := repo.Add(ctx, o); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed database: %w", err)
	}
	return created, nil
}
