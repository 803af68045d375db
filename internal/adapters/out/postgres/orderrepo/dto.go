// Package orderrepo reads the pharmacy queue from PostgreSQL with gorm: orders
// joined with their room, items (with medication names) and high-alert
// checks, plus the profile lookup used to resolve display names.
package orderrepo

import (
	"time"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/model/order"

	"github.com/google/uuid"
)

type OrderDTO struct {
	ID         int64 `gorm:"primaryKey"`
	RoomID     *int64
	Room       *RoomDTO `gorm:"foreignKey:RoomID"`
	Status     string
	Priority   string
	KitKey     *string
	Notes      string
	CreatedBy  *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	AssignedTo *uuid.UUID `gorm:"type:uuid"`
	AssignedAt *time.Time
	Items      []OrderItemDTO      `gorm:"foreignKey:OrderID"`
	Checks     []HighAlertCheckDTO `gorm:"foreignKey:OrderID"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

type RoomDTO struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func (RoomDTO) TableName() string {
	return "rooms"
}

type MedDTO struct {
	ID        int64 `gorm:"primaryKey"`
	Name      string
	Unit      string
	HighAlert bool
}

func (MedDTO) TableName() string {
	return "meds"
}

type OrderItemDTO struct {
	ID        int64 `gorm:"primaryKey"`
	OrderID   int64
	MedID     int64
	Med       *MedDTO `gorm:"foreignKey:MedID"`
	Qty       float64
	Unit      string
	HighAlert bool
}

func (OrderItemDTO) TableName() string {
	return "order_items"
}

type HighAlertCheckDTO struct {
	ID        int64 `gorm:"primaryKey"`
	OrderID   int64
	CheckerID uuid.UUID `gorm:"type:uuid"`
	CheckedAt time.Time
	Notes     string
}

func (HighAlertCheckDTO) TableName() string {
	return "high_alert_checks"
}

type ProfileDTO struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role        string
	RoomID      *int64
	DisplayName string
}

func (ProfileDTO) TableName() string {
	return "profiles"
}

// fromDomain maps a new order for insertion. Ids, checks and assignment are
// owned by the database.
func fromDomain(o *order.Order) OrderDTO {
	dto := OrderDTO{
		Status:   o.Status.String(),
		Priority: o.Priority.String(),
		Notes:    o.Notes,
	}
	if o.RoomID > 0 {
		room := o.RoomID
		dto.RoomID = &room
	}
	if o.KitKey != "" {
		kit := o.KitKey
		dto.KitKey = &kit
	}
	if o.CreatedBy != nil {
		raw := o.CreatedBy.Bytes()
		dto.CreatedBy = &raw
	}
	if !o.CreatedAt.IsZero() {
		dto.CreatedAt = o.CreatedAt
	}

	dto.Items = make([]OrderItemDTO, len(o.Items))
	for i, item := range o.Items {
		dto.Items[i] = OrderItemDTO{
			MedID:     item.MedID,
			Qty:       item.Qty,
			Unit:      item.Unit,
			HighAlert: item.HighAlert,
		}
	}
	return dto
}

func toDomain(dto OrderDTO) (*order.Order, error) {
	status, err := order.ParseStatus(dto.Status)
	if err != nil {
		return nil, err
	}
	priority, err := order.ParsePriority(dto.Priority)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:         dto.ID,
		Status:     status,
		Priority:   priority,
		Notes:      dto.Notes,
		CreatedAt:  dto.CreatedAt,
		UpdatedAt:  dto.UpdatedAt,
		AssignedAt: dto.AssignedAt,
		Items:      make([]order.Item, len(dto.Items)),
		Checks:     make([]order.HighAlertCheck, len(dto.Checks)),
	}
	if dto.RoomID != nil {
		o.RoomID = *dto.RoomID
	}
	if dto.Room != nil {
		o.RoomName = dto.Room.Name
	}
	if dto.KitKey != nil {
		o.KitKey = *dto.KitKey
	}
	if o.CreatedBy, err = optionalUUID(dto.CreatedBy); err != nil {
		return nil, err
	}
	if o.AssignedTo, err = optionalUUID(dto.AssignedTo); err != nil {
		return nil, err
	}

	for i, item := range dto.Items {
		o.Items[i] = order.Item{
			ID:        item.ID,
			MedID:     item.MedID,
			Qty:       item.Qty,
			Unit:      item.Unit,
			HighAlert: item.HighAlert,
		}
		if item.Med != nil {
			o.Items[i].MedName = item.Med.Name
		}
	}

	for i, check := range dto.Checks {
		checker, err := kernel.UUIDFromBytes(check.CheckerID[:])
		if err != nil {
			return nil, err
		}
		o.Checks[i] = order.HighAlertCheck{
			ID:        check.ID,
			CheckerID: checker,
			CheckedAt: check.CheckedAt,
			Notes:     check.Notes,
		}
	}

	return o, o.Validate()
}

func optionalUUID(raw *uuid.UUID) (*kernel.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := kernel.UUIDFromBytes(raw[:])
	if err != nil {
		return nil, err
	}
	return &id, nil
}
