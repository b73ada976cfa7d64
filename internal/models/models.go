package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64           `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"size:128;uniqueIndex;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Cost      decimal.Decimal `json:"cost" gorm:"type:decimal(12,2);not null"`
	Stock     int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	IsDeleted bool            `json:"is_deleted" gorm:"not null;default:false;index"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ProductUpdate carries a partial update; nil fields are left untouched.
// ExpectedStock turns the stock edit into a compare-and-set.
type ProductUpdate struct {
	Name          *string          `json:"name" binding:"omitempty,min=1,max=128"`
	Price         *decimal.Decimal `json:"price"`
	Cost          *decimal.Decimal `json:"cost"`
	Stock         *int             `json:"stock" binding:"omitempty,min=0"`
	ExpectedStock *int             `json:"expected_stock" binding:"omitempty,min=0"`
}

func (u ProductUpdate) Empty() bool {
	return u.Name == nil && u.Price == nil && u.Cost == nil && u.Stock == nil
}

type Transaction struct {
	ID          int64             `json:"id" gorm:"primaryKey"`
	Timestamp   time.Time         `json:"timestamp" gorm:"not null;index"`
	TotalAmount decimal.Decimal   `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Items       []TransactionItem `json:"items,omitempty" gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
}

type TransactionItem struct {
	ID            int64           `json:"id" gorm:"primaryKey"`
	TransactionID int64           `json:"transaction_id" gorm:"index;not null"`
	ProductID     int64           `json:"product_id" gorm:"index;not null"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	PriceAtSale   decimal.Decimal `json:"price_at_sale" gorm:"type:decimal(12,2);not null"`
}

// LineTotal is quantity times the snapshotted unit price.
func (i TransactionItem) LineTotal() decimal.Decimal {
	return i.PriceAtSale.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal sums the line totals; a committed transaction's TotalAmount equals it.
func (t *Transaction) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

type CartEntry struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gt=0"`
}

// NewProduct has pointer money fields so an omitted price or cost is rejected
// instead of being read as zero.
type NewProduct struct {
	Name  string           `json:"name" binding:"required,min=1,max=128"`
	Price *decimal.Decimal `json:"price" binding:"required"`
	Cost  *decimal.Decimal `json:"cost" binding:"required"`
	Stock int              `json:"stock" binding:"min=0"`
}

type SeedResult struct {
	ProductsCreated     int `json:"products_created"`
	TransactionsCreated int `json:"transactions_created"`
}
