package infrastructure

import (
	"context"
	"time"

	"orderstream/internal/service/order/domain"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const maxRecentDeadLetters = 500

// OpenMySQL 打开连接池并确保死信表存在
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql db")
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&DeadLetterModel{}); err != nil {
		return nil, errors.Wrap(err, "migrate dead letter table")
	}
	return db, nil
}

// GormDeadLetterRepository 是 port.DeadLetterRepository 的 GORM 实现
type GormDeadLetterRepository struct {
	db *gorm.DB
}

func NewGormDeadLetterRepository(db *gorm.DB) *GormDeadLetterRepository {
	return &GormDeadLetterRepository{db: db}
}

func (r *GormDeadLetterRepository) Save(ctx context.Context, record *domain.ArchivedDeadLetter) error {
	model := FromDomainDeadLetter(record)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrapf(err, "archive dead letter for order %q", record.OrderID)
	}
	record.ID = model.ID
	return nil
}

// Recent 按归档时间倒序返回最近的死信，最多 500 条
func (r *GormDeadLetterRepository) Recent(ctx context.Context, limit int) ([]*domain.ArchivedDeadLetter, error) {
	var models []*DeadLetterModel
	if err := recentQuery(r.db.WithContext(ctx), limit).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list dead letters")
	}

	records := make([]*domain.ArchivedDeadLetter, len(models))
	for i, m := range models {
		records[i] = ToDomainDeadLetter(m)
	}
	return records, nil
}

func recentQuery(tx *gorm.DB, limit int) *gorm.DB {
	if limit <= 0 || limit > maxRecentDeadLetters {
		limit = maxRecentDeadLetters
	}
	return tx.Order("archived_at DESC").Order("id DESC").Limit(limit)
}

func (r *GormDeadLetterRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
