package types

import (
	"time"

	"github.com/google/uuid"
)

// ChatNameMaxLen is how much of the first user message names a conversation.
const ChatNameMaxLen = 45

type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID  string    `gorm:"column:thread_id;index;not null" json:"thread_id"`
	ChatName  string    `gorm:"column:chat_name" json:"chat_name"`
	DateAdded time.Time `gorm:"column:date_added;index" json:"dateAdded"`
	CreatedAt time.Time `gorm:"not null" json:"-"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}

func (Conversation) TableName() string {
	return "conversation"
}
