package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campus-hub/internal/models"

	"gorm.io/gorm"
)

const defaultLogLimit = 200

type LogFilter struct {
	Type           models.LogType
	RelatedAssetID string
	Limit          int
}

// ListLogs returns the newest logs first.
func ListLogs(ctx context.Context, f LogFilter) ([]models.Log, error) {
	q := DB.WithContext(ctx).Model(&models.Log{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.RelatedAssetID != "" {
		q = q.Where("related_asset_id = ?", f.RelatedAssetID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLogLimit
	}

	var logs []models.Log
	if err := q.Order("logged_at desc, id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	return logs, nil
}

func GetLog(ctx context.Context, id string) (models.Log, error) {
	var l models.Log
	err := DB.WithContext(ctx).First(&l, "id = ?", id).Error
	if notFound(err) {
		return models.Log{}, ErrNotFound
	}
	if err != nil {
		return models.Log{}, fmt.Errorf("load log %s: %w", id, err)
	}
	return l, nil
}

// logColumns are overwritten when an upsert hits an existing id. The
// timestamp and created_at keep their first-write values.
var logColumns = []string{
	"type", "description", "related_asset_id", "team_member",
	"feeding_data", "updated_at",
}

// SaveLog validates and upserts l. The timestamp is assigned by the server
// on first write and kept on every later edit. On return l holds the
// stored row.
func SaveLog(ctx context.Context, l *models.Log) (created bool, err error) {
	if err := normalizeLog(l); err != nil {
		return false, err
	}
	l.Timestamp = time.Now().UTC()

	err = DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Log{}).Where("id = ?", l.ID).Count(&n).Error; err != nil {
			return err
		}
		created = n == 0

		if err := tx.Clauses(upsertOn(logColumns)).Create(l).Error; err != nil {
			return err
		}
		return tx.First(l, "id = ?", l.ID).Error
	})
	if err != nil {
		return false, fmt.Errorf("save log %s: %w", l.ID, err)
	}
	return created, nil
}

func normalizeLog(l *models.Log) error {
	// server-maintained
	l.CreatedAt, l.UpdatedAt = time.Time{}, time.Time{}

	l.Description = strings.TrimSpace(l.Description)
	l.RelatedAssetID = strings.TrimSpace(l.RelatedAssetID)
	l.TeamMember = strings.TrimSpace(l.TeamMember)

	if err := assignDocID(&l.ID); err != nil {
		return err
	}
	if l.Type == "" {
		return invalid("type", "Log type is required")
	}
	if !l.Type.Valid() {
		return invalid("type", fmt.Sprintf("Unknown log type %q", l.Type))
	}
	if l.Description == "" {
		return invalid("description", "Description is required")
	}

	if len(l.FeedingData) > 0 {
		feeding := make(map[string]interface{}, len(l.FeedingData))
		for animal, ration := range l.FeedingData {
			animal = strings.TrimSpace(animal)
			if animal == "" {
				continue
			}
			text, err := rationText(animal, ration)
			if err != nil {
				return err
			}
			feeding[animal] = text
		}
		l.FeedingData = feeding
	}
	if len(l.FeedingData) == 0 {
		l.FeedingData = nil
	}
	return nil
}

// rationText flattens a feeding value to the free text the form edits.
// Numbers and booleans are spelled out; nested values are refused.
func rationText(animal string, v interface{}) (string, error) {
	switch r := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(r), nil
	case float64:
		return strconv.FormatFloat(r, 'f', -1, 64), nil
	case json.Number:
		return r.String(), nil
	case bool:
		return strconv.FormatBool(r), nil
	default:
		return "", invalid("feedingData", fmt.Sprintf("Ration for %s must be text", animal))
	}
}
