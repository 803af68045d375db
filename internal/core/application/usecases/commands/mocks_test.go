package commands_test

import (
	"context"

	"pharmaqueue/internal/core/domain/model/kernel"
	"pharmaqueue/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockWorkflowGateway struct{ mock.Mock }

func (m *MockWorkflowGateway) SetStatus(ctx context.Context, actor kernel.UUID, req ports.StatusChangeRequest) (ports.StatusChangeResponse, error) {
	args := m.Called(ctx, actor, req)
	return args.Get(0).(ports.StatusChangeResponse), args.Error(1)
}

func (m *MockWorkflowGateway) Claim(ctx context.Context, actor kernel.UUID, orderID int64) (ports.ClaimResponse, error) {
	args := m.Called(ctx, actor, orderID)
	return args.Get(0).(ports.ClaimResponse), args.Error(1)
}

func (m *MockWorkflowGateway) AddCheck(ctx context.Context, actor kernel.UUID, orderID int64, notes string) (ports.CheckResponse, error) {
	args := m.Called(ctx, actor, orderID, notes)
	return args.Get(0).(ports.CheckResponse), args.Error(1)
}
