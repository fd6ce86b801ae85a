package database

import (
	"context"
	"fmt"

	"campus-hub/internal/models"

	"go.uber.org/zap"
)

// CreateAuditLog records who changed what. Failures are logged and
// otherwise ignored so the audited write is never rolled back by them.
func CreateAuditLog(ctx context.Context, userID uint, entity, entityID, action, details string) {
	if DB == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if err := DB.WithContext(ctx).Create(&record).Error; err != nil {
		zap.L().Named("audit").Warn("failed to write audit log",
			zap.String("entity", entity),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

func ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = 200
	}
	var logs []models.AuditLog
	if err := DB.WithContext(ctx).
		Preload("User").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}
