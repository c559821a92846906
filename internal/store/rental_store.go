// Package store exposes the database primitives the rental flow needs:
// transaction begin/commit/rollback plus row-level reads and writes for
// units, members, products, promos and the rental transaction itself. The
// wider CRUD surface of the billing API is not part of this service.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ayung21/billing-ps-api-sub000/internal/errs"
	"github.com/ayung21/billing-ps-api-sub000/internal/model"
)

// RentalStore opens units of work against the billing database.
type RentalStore interface {
	Begin(ctx context.Context) (RentalTx, error)
}

// RentalTx is one open database transaction. Commit is called only after
// the TV acknowledged power-on; every other exit path rolls back.
type RentalTx interface {
	FindUnit(id uint) (*model.RentalUnit, error)
	UnitHasActiveRental(unitID uint) (bool, error)
	FindMember(id uint) (*model.Member, error)
	FindProduct(id uint) (*model.Product, error)
	DecrementStock(productID uint, qty int) error
	FindPromo(id uint) (*model.Promo, error)
	CreateTransaction(t *model.RentalTransaction) error
	CreateDetail(d *model.RentalDetail) error
	UpdateTransactionTotals(id uint, subtotal, discount, total int64) error
	Commit() error
	Rollback() error
}

// GormStore implements RentalStore over GORM/PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Begin opens a database transaction bound to ctx.
func (s *GormStore) Begin(ctx context.Context) (RentalTx, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormTx{tx: tx}, nil
}

type gormTx struct {
	tx *gorm.DB
}

func (g *gormTx) FindUnit(id uint) (*model.RentalUnit, error) {
	var unit model.RentalUnit
	if err := g.tx.First(&unit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUnitNotFound
		}
		return nil, err
	}
	return &unit, nil
}

func (g *gormTx) UnitHasActiveRental(unitID uint) (bool, error) {
	var count int64
	err := g.tx.Model(&model.RentalTransaction{}).
		Where("unit_id = ? AND status = ?", unitID, model.TxStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (g *gormTx) FindMember(id uint) (*model.Member, error) {
	var m model.Member
	if err := g.tx.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrMemberNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (g *gormTx) FindProduct(id uint) (*model.Product, error) {
	var p model.Product
	if err := g.tx.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DecrementStock atomically takes qty from stock; the guard in the WHERE
// clause keeps stock from going negative under concurrent sales.
func (g *gormTx) DecrementStock(productID uint, qty int) error {
	res := g.tx.Model(&model.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrInsufficientStock
	}
	return nil
}

func (g *gormTx) FindPromo(id uint) (*model.Promo, error) {
	var p model.Promo
	if err := g.tx.Where("id = ? AND active = true", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrPromoNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (g *gormTx) CreateTransaction(t *model.RentalTransaction) error {
	return g.tx.Create(t).Error
}

func (g *gormTx) CreateDetail(d *model.RentalDetail) error {
	return g.tx.Create(d).Error
}

func (g *gormTx) UpdateTransactionTotals(id uint, subtotal, discount, total int64) error {
	return g.tx.Model(&model.RentalTransaction{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"subtotal": subtotal,
			"discount": discount,
			"total":    total,
		}).Error
}

func (g *gormTx) Commit() error   { return g.tx.Commit().Error }
func (g *gormTx) Rollback() error { return g.tx.Rollback().Error }
