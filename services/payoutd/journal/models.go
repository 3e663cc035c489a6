package journal

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReceiptRecord stores one emitted transfer.
type ReceiptRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BatchID   uuid.UUID `gorm:"type:uuid;index"`
	Recipient string    `gorm:"size:64;index"`
	Asset     string    `gorm:"size:96;index"`
	Amount    string    `gorm:"size:32;not null"`
	Reserve   string    `gorm:"size:32"`
	Purpose   string    `gorm:"size:32;index"`
	Reference string    `gorm:"size:128"`
	TxHash    string    `gorm:"size:128"`
	CreatedAt time.Time
}

// AlertRecord stores a reconciliation alert.
type AlertRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Operation  string    `gorm:"size:32;index"`
	Account    string    `gorm:"size:64;index"`
	Amount     string    `gorm:"size:32"`
	Reason     string    `gorm:"size:64"`
	Detail     string    `gorm:"type:text"`
	Receipts   string    `gorm:"type:text"`
	Resolved   bool      `gorm:"index"`
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// HolderRecord is one entry of a pool holder snapshot.
type HolderRecord struct {
	PoolID    string `gorm:"size:64;primaryKey"`
	Account   string `gorm:"size:40;primaryKey"`
	Units     string `gorm:"size:32;not null"`
	UpdatedAt time.Time
}

// AutoMigrate creates or updates the journal tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ReceiptRecord{}, &AlertRecord{}, &HolderRecord{})
}
