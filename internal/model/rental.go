package model

import "time"

// StartRentalRequest is the body for POST /api/rentals.
type StartRentalRequest struct {
	CustomerName    string        `json:"customer_name" binding:"required"`
	CustomerPhone   string        `json:"customer_phone"`
	MemberID        *uint         `json:"member_id"`
	UnitID          uint          `json:"unit_id" binding:"required"`
	DurationMinutes int           `json:"duration_minutes" binding:"required,gt=0"`
	UnitPrice       int64         `json:"unit_price" binding:"required,gte=0"`
	PromoID         *uint         `json:"promo_id"`
	Products        []ProductLine `json:"products" binding:"dive"`
}

// ProductLine is one requested product with quantity.
type ProductLine struct {
	ProductID uint `json:"product_id" binding:"required"`
	Qty       int  `json:"qty" binding:"required,gt=0"`
}

// DeviceResult is the device-command outcome attached to a rental response.
type DeviceResult struct {
	TVID    string `json:"tv_id"`
	Command int    `json:"command"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// TransactionView is the API view of a rental transaction (not the GORM
// entity).
type TransactionView struct {
	ID              uint         `json:"id"`
	Code            string       `json:"code"`
	BranchID        uint         `json:"branch_id"`
	UnitID          uint         `json:"unit_id"`
	MemberID        *uint        `json:"member_id,omitempty"`
	CustomerName    string       `json:"customer_name"`
	CustomerPhone   string       `json:"customer_phone,omitempty"`
	DurationMinutes int          `json:"duration_minutes"`
	StartedAt       time.Time    `json:"started_at"`
	EndsAt          time.Time    `json:"ends_at"`
	Subtotal        int64        `json:"subtotal"`
	Discount        int64        `json:"discount"`
	Total           int64        `json:"total"`
	Status          string       `json:"status"`
	CreatedBy       string       `json:"created_by"`
	Details         []DetailView `json:"details"`
}

// DetailView is one line item in the API view.
type DetailView struct {
	Kind        string `json:"kind"`
	ProductID   *uint  `json:"product_id,omitempty"`
	PromoID     *uint  `json:"promo_id,omitempty"`
	Description string `json:"description"`
	Qty         int    `json:"qty"`
	UnitPrice   int64  `json:"unit_price"`
	Amount      int64  `json:"amount"`
}

// RentalReceipt is the success payload for a started rental.
type RentalReceipt struct {
	Transaction TransactionView `json:"transaction"`
	Device      DeviceResult    `json:"device"`
}

// TransactionToView converts the entity plus its details to the API view.
func TransactionToView(t *RentalTransaction) TransactionView {
	v := TransactionView{
		ID:              t.ID,
		Code:            t.Code,
		BranchID:        t.BranchID,
		UnitID:          t.UnitID,
		MemberID:        t.MemberID,
		CustomerName:    t.CustomerName,
		CustomerPhone:   t.CustomerPhone,
		DurationMinutes: t.DurationMinutes,
		StartedAt:       t.StartedAt,
		EndsAt:          t.EndsAt,
		Subtotal:        t.Subtotal,
		Discount:        t.Discount,
		Total:           t.Total,
		Status:          t.Status,
		CreatedBy:       t.CreatedBy,
	}
	for _, d := range t.Details {
		v.Details = append(v.Details, DetailView{
			Kind:        d.Kind,
			ProductID:   d.ProductID,
			PromoID:     d.PromoID,
			Description: d.Description,
			Qty:         d.Qty,
			UnitPrice:   d.UnitPrice,
			Amount:      d.Amount,
		})
	}
	return v
}
