package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Transcript struct {
	ID                 uuid.UUID                     `gorm:"type:uuid;primaryKey" json:"id"`
	Transcript         string                        `gorm:"column:transcript;type:text" json:"transcript"`
	IdsOfInsertedTasks datatypes.JSONSlice[uuid.UUID] `gorm:"column:ids_of_inserted_tasks" json:"idsOfInsertedTasks"`
	UniqueID           string                        `gorm:"column:unique_id;uniqueIndex;not null" json:"unique_id"`
	DateAdded          time.Time                     `gorm:"column:date_added;index" json:"dateAdded"`
	CreatedAt          time.Time                     `gorm:"not null" json:"-"`
	UpdatedAt          time.Time                     `gorm:"not null" json:"-"`
}

func (Transcript) TableName() string {
	return "transcript"
}

// TaskIDs returns the task id list as a plain slice.
func (t *Transcript) TaskIDs() []uuid.UUID {
	return []uuid.UUID(t.IdsOfInsertedTasks)
}
