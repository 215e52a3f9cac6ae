package models

import (
	"time"
)

// FactoryEntry binds a supported account factory to the extractor variant
// used for call data from accounts it deploys. Position is the dense
// enumeration index maintained swap-and-pop style: removing an entry moves
// the last entry into its slot.
type FactoryEntry struct {
	ID        uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Factory   string    `json:"factory" gorm:"size:42;uniqueIndex;not null"`
	Extractor string    `json:"extractor" gorm:"size:32;not null"` // extractor variant name
	Label     string    `json:"label,omitempty" gorm:"size:64"`
	Position  int       `json:"position" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FactoryEntry) TableName() string {
	return "factory_entries"
}
