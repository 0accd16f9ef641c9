package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/JonMunkholm/DeliverySync/internal/config"
	"github.com/JonMunkholm/DeliverySync/internal/core"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 500

// orderRow is the gorm model of the orders table.
type orderRow struct {
	ID            string `gorm:"type:char(36);primaryKey"`
	OrderCode     string `gorm:"type:varchar(64);not null;uniqueIndex:orders_order_code_key"`
	OrderDate     string `gorm:"type:varchar(32)"`
	DeliveryDate  string `gorm:"type:varchar(32)"`
	CustomerCode  string `gorm:"type:varchar(64)"`
	CustomerName  string `gorm:"type:varchar(255)"`
	CustomerEmail string `gorm:"type:varchar(255)"`
	CustomerPhone string `gorm:"type:varchar(64)"`
	SellerName    string `gorm:"type:varchar(255)"`
	City          string `gorm:"type:varchar(128)"`
	State         string `gorm:"type:varchar(64)"`
	CarrierName   string `gorm:"type:varchar(255)"`
	Status        string `gorm:"type:varchar(32);not null"`
	LastUpdatedAt *time.Time
	CreatedAt     time.Time
}

func (orderRow) TableName() string { return "orders" }

// MySQL stores orders in MySQL through gorm.
type MySQL struct {
	db *gorm.DB
}

// OpenMySQL connects with a go-sql-driver DSN such as
// user:pass@tcp(host:3306)/deliveries?parseTime=true.
func OpenMySQL(cfg config.DatabaseConfig) (*MySQL, error) {
	gormCfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	gdb, err := gorm.Open(mysql.Open(cfg.URL), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to mysql: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConns)
	sqlDB.SetMaxIdleConns(cfg.MinConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxConnLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	return &MySQL{db: gdb}, nil
}

// Migrate creates or updates the orders table.
func (m *MySQL) Migrate(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&orderRow{}); err != nil {
		return fmt.Errorf("migrate orders: %w", err)
	}
	return nil
}

func (m *MySQL) FindByCode(ctx context.Context, code string) (*core.OrderRecord, error) {
	return m.take(ctx, "order_code = ?", code)
}

func (m *MySQL) FindByID(ctx context.Context, id string) (*core.OrderRecord, error) {
	return m.take(ctx, "id = ?", id)
}

func (m *MySQL) take(ctx context.Context, query string, arg any) (*core.OrderRecord, error) {
	var row orderRow
	err := m.db.WithContext(ctx).Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

// InsertMany inserts all records in one transaction.
func (m *MySQL) InsertMany(ctx context.Context, records []core.OrderRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]orderRow, len(records))
	for i, r := range records {
		rows[i] = newOrderRow(r)
	}

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, insertBatchSize).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateCode, err)
	}
	return err
}

// UpdateStatus changes status and last_updated_at. MySQL reports zero
// affected rows for a no-op update, so a miss is confirmed with a count.
func (m *MySQL) UpdateStatus(ctx context.Context, code string, status core.OrderStatus, at time.Time) error {
	db := m.db.WithContext(ctx)

	res := db.Model(&orderRow{}).Where("order_code = ?", code).Updates(map[string]any{
		"status":          string(status),
		"last_updated_at": at,
	})
	if res.Error != nil {
		return fmt.Errorf("update status: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.Model(&orderRow{}).Where("order_code = ?", code).Count(&n).Error; err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (m *MySQL) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newOrderRow(r core.OrderRecord) orderRow {
	row := orderRow{
		ID:            r.ID,
		OrderCode:     r.OrderCode,
		OrderDate:     r.OrderDate,
		DeliveryDate:  r.DeliveryDate,
		CustomerCode:  r.CustomerCode,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		SellerName:    r.SellerName,
		City:          r.City,
		State:         r.State,
		CarrierName:   r.CarrierName,
		Status:        string(r.Status),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if !r.LastUpdatedAt.IsZero() {
		t := r.LastUpdatedAt
		row.LastUpdatedAt = &t
	}
	return row
}

func (r orderRow) record() core.OrderRecord {
	rec := core.OrderRecord{
		ID:            r.ID,
		OrderCode:     r.OrderCode,
		OrderDate:     r.OrderDate,
		DeliveryDate:  r.DeliveryDate,
		CustomerCode:  r.CustomerCode,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
		CustomerPhone: r.CustomerPhone,
		SellerName:    r.SellerName,
		City:          r.City,
		State:         r.State,
		CarrierName:   r.CarrierName,
		Status:        core.OrderStatus(r.Status),
	}
	if r.LastUpdatedAt != nil {
		rec.LastUpdatedAt = *r.LastUpdatedAt
	}
	return rec
}
