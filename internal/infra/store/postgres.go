package store

import (
	"context"
	"errors"
	"time"

	"github.com/zeebo/xxh3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/officechat/internal/infra/database/models"
)

const documentRowID = 1

// PostgresBackend keeps the document in a single row of the documents table.
// The row is replaced inside a transaction, so a failed write leaves the previous body intact.
type PostgresBackend struct {
	db *gorm.DB
}

func NewPostgresBackend(db *gorm.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Load(ctx context.Context) ([]byte, error) {
	var row models.DocumentRow
	err := b.db.WithContext(ctx).Where("id = ?", documentRowID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []byte(row.Body), nil
}

func (b *PostgresBackend) Save(ctx context.Context, data []byte) error {
	row := models.DocumentRow{
		ID:        documentRowID,
		Body:      string(data),
		Checksum:  int64(xxh3.Hash(data)),
		UpdatedAt: time.Now(),
	}

	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"body", "checksum", "updated_at"}),
		}).Create(&row).Error
	})
}
