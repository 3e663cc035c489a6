// Package journal persists emitted receipts, reconciliation alerts and pool
// holder snapshots in a SQL database.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"drippy/core/engine"
	"drippy/core/payout"
	"drippy/core/types"
	"drippy/native/fees"
)

// Journal wraps the journal database.
type Journal struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn. postgres:// and postgresql:// URLs use the Postgres
// driver; anything else is treated as a sqlite path or URI.
func Open(dsn string) (*Journal, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("journal: dsn required")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	return New(db)
}

// New migrates db and wraps it.
func New(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordBatch stores the receipts of one accepted batch.
func (j *Journal) RecordBatch(ctx context.Context, batchID uuid.UUID, batch []payout.Instruction, receipts []payout.Receipt) error {
	if len(batch) != len(receipts) {
		return fmt.Errorf("journal: %d instructions for %d receipts", len(batch), len(receipts))
	}
	rows := make([]ReceiptRecord, len(batch))
	now := j.now().UTC()
	for i, ins := range batch {
		id, err := uuid.Parse(receipts[i].ID)
		if err != nil {
			id = uuid.New()
		}
		rows[i] = ReceiptRecord{
			ID:        id,
			BatchID:   batchID,
			Recipient: ins.Recipient.String(),
			Asset:     ins.Asset.String(),
			Amount:    strconv.FormatUint(ins.Amount, 10),
			Reserve:   strconv.FormatUint(ins.ReserveFunded, 10),
			Purpose:   string(ins.Purpose),
			Reference: ins.Reference,
			TxHash:    receipts[i].TxHash,
			CreatedAt: now,
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return j.db.WithContext(ctx).Create(&rows).Error
}

// Receipts lists the most recent receipts, newest first.
func (j *Journal) Receipts(ctx context.Context, limit int) ([]ReceiptRecord, error) {
	var rows []ReceiptRecord
	query := j.db.WithContext(ctx).Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}

// RaiseAlert implements engine.AlertSink.
func (j *Journal) RaiseAlert(ctx context.Context, alert engine.Alert) error {
	hashes := make([]string, 0, len(alert.Receipts))
	for _, receipt := range alert.Receipts {
		hashes = append(hashes, receipt.TxHash)
	}
	row := AlertRecord{
		ID:        uuid.New(),
		Operation: alert.Operation,
		Amount:    strconv.FormatUint(alert.Amount, 10),
		Reason:    alert.Reason,
		Detail:    alert.Detail,
		Receipts:  strings.Join(hashes, ","),
		CreatedAt: j.now().UTC(),
	}
	if !alert.Account.IsZero() {
		row.Account = alert.Account.String()
	}
	return j.db.WithContext(ctx).Create(&row).Error
}

// Alerts lists alerts; unresolved only when open is set.
func (j *Journal) Alerts(ctx context.Context, open bool) ([]AlertRecord, error) {
	var rows []AlertRecord
	query := j.db.WithContext(ctx).Order("created_at desc")
	if open {
		query = query.Where("resolved = ?", false)
	}
	err := query.Find(&rows).Error
	return rows, err
}

// ResolveAlert marks an alert reconciled.
func (j *Journal) ResolveAlert(ctx context.Context, id uuid.UUID) error {
	now := j.now().UTC()
	result := j.db.WithContext(ctx).Model(&AlertRecord{}).Where("id = ?", id).
		Updates(map[string]any{"resolved": true, "resolved_at": &now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Holders implements fees.HolderSource. Holders are ordered by account so the
// remainder always lands on the same entry.
func (j *Journal) Holders(ctx context.Context, poolID string) ([]fees.Holder, error) {
	var rows []HolderRecord
	if err := j.db.WithContext(ctx).Where("pool_id = ?", poolID).Order("account asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	holders := make([]fees.Holder, 0, len(rows))
	for _, row := range rows {
		id, err := types.ParseAccountID(row.Account)
		if err != nil {
			return nil, fmt.Errorf("journal: holder %s: %w", row.Account, err)
		}
		units, err := strconv.ParseUint(row.Units, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("journal: holder %s units: %w", row.Account, err)
		}
		holders = append(holders, fees.Holder{Account: id, Units: units})
	}
	return holders, nil
}

// ReplaceHolders swaps the snapshot of poolID atomically.
func (j *Journal) ReplaceHolders(ctx context.Context, poolID string, holders []fees.Holder) error {
	poolID = strings.TrimSpace(poolID)
	if poolID == "" {
		return errors.New("journal: pool id required")
	}
	now := j.now().UTC()
	merged := make(map[types.AccountID]uint64, len(holders))
	for _, holder := range holders {
		merged[holder.Account] += holder.Units
	}
	rows := make([]HolderRecord, 0, len(merged))
	for account, units := range merged {
		rows = append(rows, HolderRecord{PoolID: poolID, Account: account.Hex(), Units: strconv.FormatUint(units, 10), UpdatedAt: now})
	}
	sort.Slice(rows, func(a, b int) bool { return rows[a].Account < rows[b].Account })
	return j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("pool_id = ?", poolID).Delete(&HolderRecord{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}
