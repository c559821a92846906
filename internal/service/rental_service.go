package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayung21/billing-ps-api-sub000/internal/errs"
	"github.com/ayung21/billing-ps-api-sub000/internal/model"
	"github.com/ayung21/billing-ps-api-sub000/internal/store"
	"github.com/ayung21/billing-ps-api-sub000/internal/tv"
)

// DeviceCommander is the command/response surface the rental flow needs
// from the TV subsystem. Implemented by *tv.Correlator.
type DeviceCommander interface {
	Clear(deviceID string, command int)
	Send(deviceID string, command int, target string) error
	Await(ctx context.Context, deviceID string, command int, timeout time.Duration) tv.Result
}

// RentalStarter is the rental-start operation exposed to the route layer.
type RentalStarter interface {
	StartRental(ctx context.Context, actorID string, req *model.StartRentalRequest) (*model.RentalReceipt, error)
}

// RentalService starts paid rental sessions. The database write and the TV
// power-on command form one logical transaction: the write commits only if
// the physical TV acknowledged the command, and rolls back on every other
// outcome. The TV has no transactional participation, so this gate is the
// only thing enforcing that atomicity.
type RentalService struct {
	store          store.RentalStore
	commander      DeviceCommander
	commandTimeout time.Duration
	log            *zap.Logger
}

// NewRentalService creates the rental service. commandTimeout bounds the
// wait for the TV's power-on acknowledgment.
func NewRentalService(st store.RentalStore, cmd DeviceCommander, commandTimeout time.Duration, log *zap.Logger) *RentalService {
	return &RentalService{
		store:          st,
		commander:      cmd,
		commandTimeout: commandTimeout,
		log:            log.With(zap.String("component", "rental_service")),
	}
}

// StartRental validates preconditions, writes the transaction header and
// line items uncommitted, then powers on the unit's TV through the control
// channel and commits only on the device's success acknowledgment.
func (s *RentalService) StartRental(ctx context.Context, actorID string, req *model.StartRentalRequest) (*model.RentalReceipt, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin rental transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	unit, err := tx.FindUnit(req.UnitID)
	if err != nil {
		return nil, err
	}
	if !unit.Active {
		return nil, errs.ErrUnitNotFound
	}
	busy, err := tx.UnitHasActiveRental(unit.ID)
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, errs.ErrUnitBusy
	}
	if req.MemberID != nil {
		member, err := tx.FindMember(*req.MemberID)
		if err != nil {
			return nil, err
		}
		if !member.Active {
			return nil, errs.ErrMemberInactive
		}
	}

	now := time.Now()
	header := &model.RentalTransaction{
		Code:            "TRX-" + uuid.New().String(),
		BranchID:        unit.BranchID,
		UnitID:          unit.ID,
		MemberID:        req.MemberID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		DurationMinutes: req.DurationMinutes,
		StartedAt:       now,
		EndsAt:          now.Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:          model.TxStatusActive,
		CreatedBy:       actorID,
	}
	if err := tx.CreateTransaction(header); err != nil {
		return nil, fmt.Errorf("create transaction header: %w", err)
	}

	details, subtotal, discount, err := s.buildDetails(tx, header, unit, req)
	if err != nil {
		return nil, err
	}
	header.Subtotal = subtotal
	header.Discount = discount
	header.Total = subtotal - discount
	header.Details = details
	if err := tx.UpdateTransactionTotals(header.ID, header.Subtotal, header.Discount, header.Total); err != nil {
		return nil, fmt.Errorf("update transaction totals: %w", err)
	}

	// The write is in place but uncommitted. Everything past this point is
	// the device side of the gate.
	res, err := s.powerOn(ctx, unit)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit rental transaction: %w", err)
	}
	committed = true

	s.log.Info("rental started",
		zap.String("code", header.Code),
		zap.Uint("unit_id", unit.ID),
		zap.String("tv_id", unit.TVID),
		zap.String("created_by", actorID))

	return &model.RentalReceipt{
		Transaction: model.TransactionToView(header),
		Device: model.DeviceResult{
			TVID:    unit.TVID,
			Command: tv.CmdPowerOn,
			Status:  res.Status,
			Message: res.Message,
		},
	}, nil
}

// buildDetails inserts the unit line, optional promo line, and product
// lines (decrementing stock) and returns the money totals.
func (s *RentalService) buildDetails(tx store.RentalTx, header *model.RentalTransaction, unit *model.RentalUnit, req *model.StartRentalRequest) ([]model.RentalDetail, int64, int64, error) {
	var details []model.RentalDetail
	var subtotal, discount int64

	unitLine := model.RentalDetail{
		TransactionID: header.ID,
		Kind:          model.DetailKindUnit,
		Description:   fmt.Sprintf("%s (%d min)", unit.Name, req.DurationMinutes),
		Qty:           1,
		UnitPrice:     req.UnitPrice,
		Amount:        req.UnitPrice,
	}
	if err := tx.CreateDetail(&unitLine); err != nil {
		return nil, 0, 0, fmt.Errorf("create unit detail: %w", err)
	}
	details = append(details, unitLine)
	subtotal += unitLine.Amount

	for _, line := range req.Products {
		product, err := tx.FindProduct(line.ProductID)
		if err != nil {
			return nil, 0, 0, err
		}
		if err := tx.DecrementStock(product.ID, line.Qty); err != nil {
			return nil, 0, 0, err
		}
		pid := product.ID
		d := model.RentalDetail{
			TransactionID: header.ID,
			Kind:          model.DetailKindProduct,
			ProductID:     &pid,
			Description:   product.Name,
			Qty:           line.Qty,
			UnitPrice:     product.Price,
			Amount:        product.Price * int64(line.Qty),
		}
		if err := tx.CreateDetail(&d); err != nil {
			return nil, 0, 0, fmt.Errorf("create product detail: %w", err)
		}
		details = append(details, d)
		subtotal += d.Amount
	}

	if req.PromoID != nil {
		promo, err := tx.FindPromo(*req.PromoID)
		if err != nil {
			return nil, 0, 0, err
		}
		prid := promo.ID
		d := model.RentalDetail{
			TransactionID: header.ID,
			Kind:          model.DetailKindPromo,
			PromoID:       &prid,
			Description:   promo.Name,
			Qty:           1,
			UnitPrice:     -promo.Discount,
			Amount:        -promo.Discount,
		}
		if err := tx.CreateDetail(&d); err != nil {
			return nil, 0, 0, fmt.Errorf("create promo detail: %w", err)
		}
		details = append(details, d)
		discount += promo.Discount
	}

	return details, subtotal, discount, nil
}

// powerOn sends the power-on command to the unit's TV and waits for its
// acknowledgment. A previous exchange for the same (tv, command) pair may
// have left a stale resolution behind; it is cleared first so this call
// cannot resolve on old data.
func (s *RentalService) powerOn(ctx context.Context, unit *model.RentalUnit) (*tv.Result, error) {
	s.commander.Clear(unit.TVID, tv.CmdPowerOn)
	if err := s.commander.Send(unit.TVID, tv.CmdPowerOn, unit.Name); err != nil {
		return nil, err
	}

	res := s.commander.Await(ctx, unit.TVID, tv.CmdPowerOn, s.commandTimeout)
	switch res.Outcome {
	case tv.OutcomeSuccess:
		return &res, nil
	case tv.OutcomeTimedOut:
		return nil, fmt.Errorf("%w within %d ms (tv %s)",
			errs.ErrDeviceTimeout, s.commandTimeout.Milliseconds(), unit.TVID)
	default:
		reason := res.Reason
		if reason == "" {
			reason = res.Message
		}
		return nil, fmt.Errorf("%w: %s (tv %s)", errs.ErrDeviceFailed, reason, unit.TVID)
	}
}
