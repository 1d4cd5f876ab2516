package model

import (
	"time"

	"gorm.io/datatypes"
)

// Catalog event types pushed over the change feed
const (
	EventModuleUpdate  = "module_update"
	EventModuleReorder = "module_reorder"
	EventModuleAdd     = "module_add"
	EventModuleDelete  = "module_delete"
)

// CatalogEvent is a sequenced record of one catalog mutation.
// Seq is monotonic, so a reconnecting client can ask for everything after the last seq it saw.
type CatalogEvent struct {
	Seq       uint64         `gorm:"primaryKey;autoIncrement" json:"seq"`
	Type      string         `gorm:"type:varchar(30);not null;index" json:"type"`
	Payload   datatypes.JSON `gorm:"not null" json:"payload"`
	Author    string         `gorm:"type:varchar(255)" json:"author"`
	CreatedAt time.Time      `json:"created_at"`
}
