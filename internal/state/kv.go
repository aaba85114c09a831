package state

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrKeyNotFound reports a missing storage key.
var ErrKeyNotFound = errors.New("state: key not found")

// Storage keys for the keyed record space.
const (
	KeyPendingIntent    = "pending_add_intent"
	KeySession          = "session"
	KeyGuestID          = "guest_id"
	KeyPendingPayment   = "pending_payment"
	KeyLastConfirmation = "last_confirmation"
)

// GetValue reads the blob stored under the key.
func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	var record KVRecord
	err := s.conn.WithContext(ctx).First(&record, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return record.Value, nil
}

// PutValue writes the blob under the key, replacing any previous value.
func (s *Store) PutValue(ctx context.Context, key, value string) error {
	record := KVRecord{Key: key, Value: value}
	return s.conn.WithContext(ctx).Save(&record).Error
}

// DeleteValue removes the key. Deleting an absent key is not an error.
func (s *Store) DeleteValue(ctx context.Context, key string) error {
	return s.conn.WithContext(ctx).Delete(&KVRecord{}, "key = ?", key).Error
}
