package implementation

import (
	"context"
	"errors"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/mapper"
	"multimodal-rag-be/internal/model"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/scope"
	"multimodal-rag-be/internal/repository/specification"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatSessionMapper
}

func NewChatSessionRepository(db *gorm.DB) contract.ChatSessionRepository {
	return &ChatSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatSessionMapper(),
	}
}

func (r *ChatSessionRepositoryImpl) CreateIfAbsent(ctx context.Context, sessionId string) (bool, error) {
	m := &model.ChatSession{
		SessionId: sessionId,
		History:   datatypes.JSON("[]"),
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(m)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ChatSessionRepositoryImpl) LoadHistory(ctx context.Context, sessionId string) ([]entity.Turn, error) {
	var models []model.ChatSession
	err := specification.BySessionID{SessionID: sessionId}.
		Apply(r.db.WithContext(ctx)).
		Limit(1).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return []entity.Turn{}, nil
	}
	return mapper.DecodeHistory(models[0].History)
}

func (r *ChatSessionRepositoryImpl) SaveHistory(ctx context.Context, sessionId string, turns []entity.Turn) error {
	raw, err := mapper.EncodeHistory(turns)
	if err != nil {
		return err
	}

	m := &model.ChatSession{
		SessionId: sessionId,
		History:   datatypes.JSON(raw),
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"history", "updated_at"}),
		}).
		Create(m).Error
}

func (r *ChatSessionRepositoryImpl) FindOne(ctx context.Context, sessionId string) (*entity.ChatSession, error) {
	var m model.ChatSession
	query := specification.BySessionID{SessionID: sessionId}.Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *ChatSessionRepositoryImpl) Delete(ctx context.Context, sessionId string) (bool, error) {
	res := r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.ChatSession{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ChatSessionRepositoryImpl) ListIds(ctx context.Context) ([]string, error) {
	var ids []string
	query := r.db.WithContext(ctx).Model(&model.ChatSession{}).Scopes(scope.OrderByCreatedDesc)
	if err := query.Pluck("session_id", &ids).Error; err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
