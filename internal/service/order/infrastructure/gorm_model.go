package infrastructure

import (
	"time"

	"gorm.io/gorm"
)

// DeadLetterModel 对应数据库中的 order_dead_letter 表
type DeadLetterModel struct {
	gorm.Model
	OrderID           string `gorm:"type:varchar(64);index"`
	ErrorReason       string `gorm:"type:text"`
	ExceptionType     string `gorm:"type:varchar(255)"`
	OriginalTopic     string `gorm:"type:varchar(255)"`
	OriginalPartition int
	OriginalOffset    int64
	Payload           string    `gorm:"type:mediumtext"`
	ArchivedAt        time.Time `gorm:"index"`
}

// TableName 指定 GORM 应该使用的表名
func (DeadLetterModel) TableName() string {
	return "order_dead_letter"
}
