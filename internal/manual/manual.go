// Package manual re-projects asset records into the operations manual: one
// chapter per main category, one section per sub category.
package manual

import (
	"sort"

	"campus-hub/internal/models"
	"campus-hub/internal/taxonomy"
)

const Uncategorized = "Uncategorized"

type Section struct {
	SubCategory string         `json:"subCategory"`
	Assets      []models.Asset `json:"assets"`
}

type Chapter struct {
	MainCategory string    `json:"mainCategory"`
	Description  string    `json:"description,omitempty"`
	Sections     []Section `json:"sections"`
}

// Build groups assets in taxonomy order. Empty sections are omitted,
// decommissioned assets are left out, and anything filed under a pair the
// taxonomy does not know lands in a trailing Uncategorized chapter.
func Build(tax *taxonomy.Taxonomy, assets []models.Asset) []Chapter {
	byPair := make(map[[2]string][]models.Asset)
	var stray []models.Asset
	for _, a := range assets {
		if a.Status == models.StatusDecommissioned {
			continue
		}
		if !tax.Valid(a.MainCategory, a.SubCategory) {
			stray = append(stray, a)
			continue
		}
		key := [2]string{a.MainCategory, a.SubCategory}
		byPair[key] = append(byPair[key], a)
	}

	chapters := make([]Chapter, 0, len(tax.Categories)+1)
	for _, c := range tax.Categories {
		ch := Chapter{MainCategory: c.Name, Description: c.Description}
		for _, sub := range c.Subcategories {
			list := byPair[[2]string{c.Name, sub}]
			if len(list) == 0 {
				continue
			}
			sortByName(list)
			ch.Sections = append(ch.Sections, Section{SubCategory: sub, Assets: list})
		}
		if len(ch.Sections) > 0 {
			chapters = append(chapters, ch)
		}
	}

	if len(stray) > 0 {
		sortByName(stray)
		chapters = append(chapters, Chapter{
			MainCategory: Uncategorized,
			Sections:     []Section{{SubCategory: Uncategorized, Assets: stray}},
		})
	}
	return chapters
}

func sortByName(assets []models.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].Name < assets[j].Name
	})
}
