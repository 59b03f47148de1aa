package implementation

import (
	"context"

	"multimodal-rag-be/internal/model"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VectorCollectionRepositoryImpl struct {
	db *gorm.DB
}

func NewVectorCollectionRepository(db *gorm.DB) contract.VectorCollectionRepository {
	return &VectorCollectionRepositoryImpl{db: db}
}

func (r *VectorCollectionRepositoryImpl) CreateIfAbsent(ctx context.Context, sessionId string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.VectorCollection{SessionId: sessionId}).Error
}

func (r *VectorCollectionRepositoryImpl) Exists(ctx context.Context, sessionId string) (bool, error) {
	var count int64
	err := specification.BySessionID{SessionID: sessionId}.
		Apply(r.db.WithContext(ctx).Model(&model.VectorCollection{})).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *VectorCollectionRepositoryImpl) Delete(ctx context.Context, sessionId string) (bool, error) {
	res := specification.BySessionID{SessionID: sessionId}.
		Apply(r.db.WithContext(ctx)).
		Delete(&model.VectorCollection{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
