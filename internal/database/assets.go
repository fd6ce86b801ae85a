package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"campus-hub/internal/models"
	"campus-hub/internal/taxonomy"

	"gorm.io/gorm"
)

type AssetFilter struct {
	MainCategory string
	Status       models.AssetStatus
}

func ListAssets(ctx context.Context, f AssetFilter) ([]models.Asset, error) {
	q := DB.WithContext(ctx).Model(&models.Asset{})
	if f.MainCategory != "" {
		q = q.Where("main_category = ?", f.MainCategory)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var assets []models.Asset
	if err := q.Order("main_category asc, sub_category asc, name asc").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

func GetAsset(ctx context.Context, id string) (models.Asset, error) {
	var asset models.Asset
	err := DB.WithContext(ctx).First(&asset, "id = ?", id).Error
	if notFound(err) {
		return models.Asset{}, ErrNotFound
	}
	if err != nil {
		return models.Asset{}, fmt.Errorf("load asset %s: %w", id, err)
	}
	return asset, nil
}

// assetColumns are overwritten when an upsert hits an existing id.
// created_at is left alone.
var assetColumns = []string{
	"name", "main_category", "sub_category", "specs", "sop",
	"education", "status", "location", "updated_at",
}

// SaveAsset validates and upserts a. The stored document is replaced
// wholesale; only the creation time survives from the previous version.
// On return a holds the stored row.
func SaveAsset(ctx context.Context, a *models.Asset) (created bool, err error) {
	if err := normalizeAsset(a); err != nil {
		return false, err
	}

	err = DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Asset{}).Where("id = ?", a.ID).Count(&n).Error; err != nil {
			return err
		}
		created = n == 0

		if err := tx.Clauses(upsertOn(assetColumns)).Create(a).Error; err != nil {
			return err
		}
		return tx.First(a, "id = ?", a.ID).Error
	})
	if err != nil {
		return false, fmt.Errorf("save asset %s: %w", a.ID, err)
	}
	return created, nil
}

func DeleteAsset(ctx context.Context, id string) error {
	res := DB.WithContext(ctx).Delete(&models.Asset{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete asset %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func normalizeAsset(a *models.Asset) error {
	// server-maintained
	a.CreatedAt, a.UpdatedAt = time.Time{}, time.Time{}

	a.Name = strings.TrimSpace(a.Name)
	a.MainCategory = strings.TrimSpace(a.MainCategory)
	a.SubCategory = strings.TrimSpace(a.SubCategory)
	a.Location = strings.TrimSpace(a.Location)
	a.Specs = strings.TrimSpace(a.Specs)
	a.SOP = strings.TrimSpace(a.SOP)
	a.Education = strings.TrimSpace(a.Education)

	if err := assignDocID(&a.ID); err != nil {
		return err
	}
	if a.Name == "" {
		return invalid("name", "Asset name is required")
	}
	if a.MainCategory == "" {
		return invalid("mainCategory", "Main category is required")
	}
	if a.SubCategory == "" {
		return invalid("subCategory", "Sub category is required")
	}
	if !taxonomy.Default().Valid(a.MainCategory, a.SubCategory) {
		return invalid("subCategory", fmt.Sprintf("%q is not a sub category of %q", a.SubCategory, a.MainCategory))
	}
	if a.Status == "" {
		a.Status = models.StatusActive
	}
	if !a.Status.Valid() {
		return invalid("status", fmt.Sprintf("Unknown status %q", a.Status))
	}
	return nil
}
