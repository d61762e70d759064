package infrastructure

import (
	"orderstream/internal/service/order/domain"

	"gorm.io/gorm"
)

// ToDomainDeadLetter 将数据库模型转换为领域模型
func ToDomainDeadLetter(model *DeadLetterModel) *domain.ArchivedDeadLetter {
	if model == nil {
		return nil
	}
	return &domain.ArchivedDeadLetter{
		ID:                model.ID,
		OrderID:           model.OrderID,
		ErrorReason:       model.ErrorReason,
		ExceptionType:     model.ExceptionType,
		OriginalTopic:     model.OriginalTopic,
		OriginalPartition: model.OriginalPartition,
		OriginalOffset:    model.OriginalOffset,
		Payload:           model.Payload,
		ArchivedAt:        model.ArchivedAt,
	}
}

// FromDomainDeadLetter 将领域模型转换为数据库模型
func FromDomainDeadLetter(dmn *domain.ArchivedDeadLetter) *DeadLetterModel {
	if dmn == nil {
		return nil
	}
	return &DeadLetterModel{
		Model:             gorm.Model{ID: dmn.ID},
		OrderID:           dmn.OrderID,
		ErrorReason:       dmn.ErrorReason,
		ExceptionType:     dmn.ExceptionType,
		OriginalTopic:     dmn.OriginalTopic,
		OriginalPartition: dmn.OriginalPartition,
		OriginalOffset:    dmn.OriginalOffset,
		Payload:           dmn.Payload,
		ArchivedAt:        dmn.ArchivedAt,
	}
}
