package state

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aduboahen/juicekart/pkg/types"
)

// LoadLines returns every persisted line for the identity scope.
func (s *Store) LoadLines(ctx context.Context, scope string) ([]types.CartLine, error) {
	var records []CartLineRecord
	err := s.conn.WithContext(ctx).
		Where("scope = ?", scope).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	lines := make([]types.CartLine, 0, len(records))
	for _, record := range records {
		lines = append(lines, record.toLine())
	}
	return lines, nil
}

// ReplaceLines swaps the scope's persisted lines for the given set atomically.
func (s *Store) ReplaceLines(ctx context.Context, scope string, lines []types.CartLine) error {
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("scope = ?", scope).Delete(&CartLineRecord{}).Error; err != nil {
			return err
		}
		for _, line := range lines {
			record := recordFromLine(scope, line)
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertLine writes one line, replacing any record with the same dedupe key.
func (s *Store) UpsertLine(ctx context.Context, scope string, line types.CartLine) error {
	record := recordFromLine(scope, line)
	return s.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "scope"}, {Name: "line_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"line_id", "product_id", "name", "unit_price", "image_ref", "pack_size", "quantity", "updated_at",
			}),
		}).
		Create(&record).Error
}

// DeleteLine removes the line with the given line id from the scope.
func (s *Store) DeleteLine(ctx context.Context, scope, lineID string) error {
	return s.conn.WithContext(ctx).
		Where("scope = ? AND line_id = ?", scope, lineID).
		Delete(&CartLineRecord{}).Error
}

// ClearScope removes every line belonging to the identity scope.
func (s *Store) ClearScope(ctx context.Context, scope string) error {
	return s.conn.WithContext(ctx).
		Where("scope = ?", scope).
		Delete(&CartLineRecord{}).Error
}
