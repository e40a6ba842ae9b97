package types

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID                        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ActionItem                string    `gorm:"column:action_item;type:text;not null" json:"action_item"`
	StartDatetime             time.Time `gorm:"column:start_datetime;index" json:"start_datetime"`
	EndDatetime               time.Time `gorm:"column:end_datetime" json:"end_datetime"`
	Sent                      bool      `gorm:"column:sent;not null;default:false;index" json:"sent"`
	Completed                 bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	RelatedTranscriptRecordID uuid.UUID `gorm:"type:uuid;column:related_transcript_record_id;index" json:"related_transcript_record_id"`
	CreatedAt                 time.Time `gorm:"not null" json:"-"`
	UpdatedAt                 time.Time `gorm:"not null" json:"-"`
}

func (Task) TableName() string {
	return "task"
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	ActionItem    *string
	StartDatetime *time.Time
	EndDatetime   *time.Time
	Sent          *bool
	Completed     *bool
}

func (p TaskPatch) IsEmpty() bool {
	return p.ActionItem == nil && p.StartDatetime == nil && p.EndDatetime == nil && p.Sent == nil && p.Completed == nil
}

// Columns maps the patch onto column names for a gorm Updates call.
func (p TaskPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.ActionItem != nil {
		cols["action_item"] = *p.ActionItem
	}
	if p.StartDatetime != nil {
		cols["start_datetime"] = *p.StartDatetime
	}
	if p.EndDatetime != nil {
		cols["end_datetime"] = *p.EndDatetime
	}
	if p.Sent != nil {
		cols["sent"] = *p.Sent
	}
	if p.Completed != nil {
		cols["completed"] = *p.Completed
	}
	return cols
}
