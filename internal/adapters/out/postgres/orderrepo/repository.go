package orderrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements ports.OrderReader and the seeding writes.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// withJoins preloads everything a projection needs. Items and checks come
// back in insertion order.
func withJoins(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Room").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id") }).
		Preload("Items.Med").
		Preload("Checks", func(db *gorm.DB) *gorm.DB { return db.Order("high_alert_checks.checked_at, high_alert_checks.id") })
}

// snapshot runs the preload queries of one read in a single repeatable-read
// transaction so an order and its children are never torn.
func (r *GormOrderRepository) snapshot(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// ListByStatuses returns every order in one of the statuses, oldest first.
func (r *GormOrderRepository) ListByStatuses(ctx context.Context, statuses []order.Status) ([]*order.Order, error) {
	if len(statuses) == 0 {
		return []*order.Order{}, nil
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}

	var dtos []OrderDTO
	err := r.snapshot(ctx, func(tx *gorm.DB) error {
		return withJoins(tx).Where("status IN ?", names).Order("created_at, id").Find(&dtos).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := toDomain(dto)
		if err != nil {
			return nil, fmt.Errorf("map order %d: %w", dto.ID, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// Get returns one order with its joins.
func (r *GormOrderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	var dto OrderDTO
	err := r.snapshot(ctx, func(tx *gorm.DB) error {
		return withJoins(tx).First(&dto, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id)
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	return toDomain(dto)
}

// ResolveDisplayNames looks up profiles in one query. Unknown ids are absent
// from the result.
func (r *GormOrderRepository) ResolveDisplayNames(ctx context.Context, ids []kernel.UUID) (map[kernel.UUID]string, error) {
	names := make(map[kernel.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	raw := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		raw[i] = id.Bytes()
	}

	var profiles []ProfileDTO
	if err := r.db.WithContext(ctx).Where("user_id IN ?", raw).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("resolve display names: %w", err)
	}
	for _, p := range profiles {
		id, err := kernel.UUIDFromBytes(p.UserID[:])
		if err != nil {
			return nil, err
		}
		names[id] = p.DisplayName
	}
	return names, nil
}

// Add inserts a new order with its items and sets the generated ids on o.
func (r *GormOrderRepository) Add(ctx context.Context, o *order.Order) error {
	if o == nil {
		return errs.NewValueIsRequiredError("order")
	}
	if err := errors.Join(o.Status.Validate(), o.Priority.Validate()); err != nil {
		return err
	}

	dto := fromDomain(o)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		return fmt.Errorf("add order: %w", err)
	}

	o.ID = dto.ID
	o.CreatedAt = dto.CreatedAt
	o.UpdatedAt = dto.UpdatedAt
	for i := range o.Items {
		o.Items[i].ID = dto.Items[i].ID
	}
	return nil
}

// Delete removes an order; items and checks cascade.
func (r *GormOrderRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&OrderDTO{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete order %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("order", id)
	}
	return nil
}

// UpsertProfile creates or renames a profile.
func (r *GormOrderRepository) UpsertProfile(ctx context.Context, id kernel.UUID, role, displayName string) error {
	dto := ProfileDTO{UserID: id.Bytes(), Role: role, DisplayName: displayName}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "display_name"}),
	}).Create(&dto).Error
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// AddRoom inserts a room, or returns the id of the existing one with that name.
func (r *GormOrderRepository) AddRoom(ctx context.Context, name string) (int64, error) {
	room := RoomDTO{Name: name}
	if err := r.db.WithContext(ctx).Where(RoomDTO{Name: name}).FirstOrCreate(&room).Error; err != nil {
		return 0, fmt.Errorf("add room: %w", err)
	}
	return room.ID, nil
}

// AddMed inserts a medication into the catalog.
func (r *GormOrderRepository) AddMed(ctx context.Context, name, unit string, highAlert bool) (int64, error) {
	med := MedDTO{Name: name, Unit: unit, HighAlert: highAlert}
	if err := r.db.WithContext(ctx).Create(&med).Error; err != nil {
		return 0, fmt.Errorf("add med: %w", err)
	}
	return med.ID, nil
}
