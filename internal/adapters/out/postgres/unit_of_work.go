// Package postgres wires the PostgreSQL adapters: connection setup and a
// unit of work that groups repository writes into one transaction.
//
// Reads used by the synchronizer go through the repositories directly;
// the unit of work serves seeding and administrative writes:
//
//	uow := factory.Create()
//	if err := uow.Begin(ctx); err != nil {
//	    return err
//	}
//	defer uow.Rollback(ctx)
//
//	if err := uow.OrderRepository().Add(ctx, o); err != nil {
//	    return err
//	}
//	return uow.Commit(ctx)
package postgres

import (
	"context"

	"pharmaqueue/internal/adapters/out/postgres/orderrepo"
	"pharmaqueue/internal/adapters/out/postgres/slaconfigrepo"

	"gorm.io/gorm"
)

// GormUnitOfWorkFactory creates unit of work instances sharing one connection.
type GormUnitOfWorkFactory struct {
	db *gorm.DB
}

func NewGormUnitOfWorkFactory(db *gorm.DB) *GormUnitOfWorkFactory {
	return &GormUnitOfWorkFactory{db: db}
}

// Create returns a fresh unit of work. Instances are not safe for concurrent use.
func (f *GormUnitOfWorkFactory) Create() *GormUnitOfWork {
	return &GormUnitOfWork{db: f.db}
}

// Do runs fn inside one transaction, committing on nil and rolling back otherwise.
func (f *GormUnitOfWorkFactory) Do(ctx context.Context, fn func(uow *GormUnitOfWork) error) error {
	uow := f.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	if err := fn(uow); err != nil {
		_ = uow.Rollback(ctx)
		return err
	}
	return uow.Commit(ctx)
}

// GormUnitOfWork coordinates one database transaction.
type GormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

// Begin starts the transaction. A second call is a no-op.
func (uow *GormUnitOfWork) Begin(ctx context.Context) error {
	if uow.tx != nil {
		return nil
	}

	uow.tx = uow.db.WithContext(ctx).Begin()
	if uow.tx.Error != nil {
		err := uow.tx.Error
		uow.tx = nil
		return err
	}
	return nil
}

func (uow *GormUnitOfWork) Commit(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Commit().Error
	uow.tx = nil
	return err
}

// Rollback discards the transaction. Calling it after Commit returns
// gorm.ErrInvalidTransaction and changes nothing.
func (uow *GormUnitOfWork) Rollback(_ context.Context) error {
	if uow.tx == nil {
		return gorm.ErrInvalidTransaction
	}

	err := uow.tx.Rollback().Error
	uow.tx = nil
	return err
}

func (uow *GormUnitOfWork) conn() *gorm.DB {
	if uow.tx != nil {
		return uow.tx
	}
	return uow.db
}

// OrderRepository is bound to the transaction when one is active.
func (uow *GormUnitOfWork) OrderRepository() *orderrepo.GormOrderRepository {
	return orderrepo.NewGormOrderRepository(uow.conn())
}

// SLAConfigRepository is bound to the transaction when one is active.
func (uow *GormUnitOfWork) SLAConfigRepository() *slaconfigrepo.GormSLAConfigRepository {
	return slaconfigrepo.NewGormSLAConfigRepository(uow.conn())
}
