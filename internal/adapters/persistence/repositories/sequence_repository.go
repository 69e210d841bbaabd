package repositories

import (
	"context"

	"attendtrack/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sequenceRepository implements SequenceRepository with a counter row per name
type sequenceRepository struct {
	db *gorm.DB
}

// NewSequenceRepository creates a new sequence repository
func NewSequenceRepository(db *gorm.DB) SequenceRepository {
	return &sequenceRepository{db: db}
}

// Next increments and returns the named counter.
// The UPDATE holds the row lock until commit, so concurrent callers serialize.
func (r *sequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	var seq models.Sequence

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Sequence{Name: name, Value: 0}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Sequence{}).
			Where("name = ?", name).
			UpdateColumn("value", gorm.Expr("value + ?", 1)).Error; err != nil {
			return err
		}

		return tx.Where("name = ?", name).First(&seq).Error
	})
	if err != nil {
		return 0, translate(err)
	}

	return seq.Value, nil
}
