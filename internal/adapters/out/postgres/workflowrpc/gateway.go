// Package workflowrpc calls the guarded workflow functions installed by the
// migrations. Each call is one statement and therefore one transaction; the
// functions lock the order row, so concurrent callers serialize in the
// database and exactly one compare-and-set wins.
package workflowrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/domain/services"
	"pharmaqueue/internal/core/ports"

	"gorm.io/gorm"
)

// Gateway implements ports.WorkflowGateway.
type Gateway struct {
	db *gorm.DB
}

func NewGateway(db *gorm.DB) *Gateway {
	return &Gateway{db: db}
}

// ApplyPolicy stores the double-check gate the functions enforce.
func (g *Gateway) ApplyPolicy(ctx context.Context, gate services.DoubleCheckGate) error {
	err := g.db.WithContext(ctx).Exec(
		`UPDATE mav_policy SET required_checks = ?, distinct_checkers = ? WHERE id`,
		gate.Required(), gate.DistinctActors(),
	).Error
	if err != nil {
		return fmt.Errorf("apply double-check policy: %w", err)
	}
	return nil
}

func (g *Gateway) SetStatus(ctx context.Context, actor kernel.UUID, req ports.StatusChangeRequest) (ports.StatusChangeResponse, error) {
	var reason, metadata *string
	if req.Reason != "" {
		reason = &req.Reason
	}
	if len(req.Metadata) > 0 {
		raw := string(req.Metadata)
		metadata = &raw
	}

	var resp ports.StatusChangeResponse
	err := g.call(ctx, &resp,
		`SELECT set_order_status(?::uuid, ?::bigint, ?::text, ?::text, ?::jsonb)::text`,
		actor.String(), req.OrderID, req.To.String(), reason, metadata,
	)
	return resp, err
}

func (g *Gateway) Claim(ctx context.Context, actor kernel.UUID, orderID int64) (ports.ClaimResponse, error) {
	var resp ports.ClaimResponse
	err := g.call(ctx, &resp, `SELECT claim_order(?::uuid, ?::bigint)::text`, actor.String(), orderID)
	return resp, err
}

func (g *Gateway) AddCheck(ctx context.Context, actor kernel.UUID, orderID int64, notes string) (ports.CheckResponse, error) {
	var resp ports.CheckResponse
	err := g.call(ctx, &resp, `SELECT add_mav_check(?::uuid, ?::bigint, ?::text)::text`, actor.String(), orderID, notes)
	return resp, err
}

// call runs a function returning one jsonb document and decodes it into dest.
func (g *Gateway) call(ctx context.Context, dest any, query string, args ...any) error {
	var raw string
	if err := g.db.WithContext(ctx).Raw(query, args...).Row().Scan(&raw); err != nil {
		return fmt.Errorf("workflow call: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode workflow response: %w", err)
	}
	return nil
}
