package database

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"
)

const maxDocIDLen = 64

// assignDocID fills an empty id with a fresh UUID and rejects ids that
// could not be used as a path segment.
func assignDocID(id *string) error {
	*id = strings.TrimSpace(*id)
	if *id == "" {
		*id = uuid.NewString()
		return nil
	}
	if len(*id) > maxDocIDLen {
		return invalid("id", "Document id is too long")
	}
	if strings.ContainsAny(*id, "/?#") || *id == "." || *id == ".." {
		return invalid("id", "Document id contains forbidden characters")
	}
	return nil
}

// upsertOn turns an insert into a last-write-wins replace of cols when
// the id already exists, so concurrent first writes to one id never
// fail on the primary key.
func upsertOn(cols []string) clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(cols),
	}
}
