package schema

import "time"

// Flag stores one secret keyed by a stable id. Re-inserting an id overwrites
// the secret and timestamp; the table never holds two records with the same id.
type Flag struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Flag      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (Flag) TableName() string {
	return "flags"
}
