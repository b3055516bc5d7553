package models

import (
	"time"
)

// DocumentRow stores the whole office document. There is only ever one row.
type DocumentRow struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	Checksum  int64     `json:"checksum" gorm:"type:bigint;not null"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"type:timestamp with time zone;not null;default:clock_timestamp()"`
}

func (DocumentRow) TableName() string {
	return "documents"
}
