package model

import "time"

// Branch — cabang (rental location).
type Branch struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:16;not null;uniqueIndex"`
	Name      string    `gorm:"size:100;not null"`
	Address   string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Branch) TableName() string { return "branches" }

// RentalUnit is one playable station (console + TV) in a branch. TVID ties
// the unit to its TV agent's device id on the control channel.
type RentalUnit struct {
	ID         uint      `gorm:"primaryKey"`
	BranchID   uint      `gorm:"not null;index"`
	Name       string    `gorm:"size:50;not null"`
	TVID       string    `gorm:"column:tv_id;size:64;not null;uniqueIndex"`
	HourlyRate int64     `gorm:"not null;default:0"`
	Active     bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (RentalUnit) TableName() string { return "rental_units" }

// Member is a registered customer.
type Member struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	Phone     string    `gorm:"size:20;index"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Member) TableName() string { return "members" }

// Product is a sellable item (drinks, snacks, extra controllers).
type Product struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	Price     int64     `gorm:"not null;default:0"`
	Stock     int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

// Promo is a discount applied to a rental transaction.
type Promo struct {
	ID        uint       `gorm:"primaryKey"`
	Code      string     `gorm:"size:32;not null;uniqueIndex"`
	Name      string     `gorm:"size:100;not null"`
	Discount  int64      `gorm:"not null;default:0"`
	Active    bool       `gorm:"not null;default:true"`
	StartsAt  *time.Time `gorm:"column:starts_at"`
	EndsAt    *time.Time `gorm:"column:ends_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (Promo) TableName() string { return "promos" }

// Rental transaction status values.
const (
	TxStatusActive   = "active"
	TxStatusFinished = "finished"
)

// RentalTransaction is the transaction header. It becomes durable only
// after the unit's TV acknowledged the power-on command.
type RentalTransaction struct {
	ID              uint      `gorm:"primaryKey"`
	Code            string    `gorm:"size:40;not null;uniqueIndex"`
	BranchID        uint      `gorm:"not null;index"`
	UnitID          uint      `gorm:"not null;index"`
	MemberID        *uint     `gorm:"index"`
	CustomerName    string    `gorm:"size:100;not null"`
	CustomerPhone   string    `gorm:"size:20"`
	DurationMinutes int       `gorm:"not null"`
	StartedAt       time.Time `gorm:"not null"`
	EndsAt          time.Time `gorm:"not null"`
	Subtotal        int64     `gorm:"not null;default:0"`
	Discount        int64     `gorm:"not null;default:0"`
	Total           int64     `gorm:"not null;default:0"`
	Status          string    `gorm:"size:20;not null;default:active"`
	CreatedBy       string    `gorm:"size:64;not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`

	Details []RentalDetail `gorm:"foreignKey:TransactionID"`
}

func (RentalTransaction) TableName() string { return "rental_transactions" }

// Rental detail line kinds.
const (
	DetailKindUnit    = "unit"
	DetailKindProduct = "product"
	DetailKindPromo   = "promo"
)

// RentalDetail is one line item of a rental transaction.
type RentalDetail struct {
	ID            uint      `gorm:"primaryKey"`
	TransactionID uint      `gorm:"not null;index"`
	Kind          string    `gorm:"size:20;not null"`
	ProductID     *uint     `gorm:"index"`
	PromoID       *uint     `gorm:"index"`
	Description   string    `gorm:"size:150;not null"`
	Qty           int       `gorm:"not null;default:1"`
	UnitPrice     int64     `gorm:"not null;default:0"`
	Amount        int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (RentalDetail) TableName() string { return "rental_details" }
