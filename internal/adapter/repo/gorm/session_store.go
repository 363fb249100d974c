package gormrepo

import (
	"context"
	"errors"
	"strings"
	"time"

	"tgminer/internal/adapter/repo/gorm/model"
	"tgminer/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const DefaultProfile = "default"

// SessionStore keeps session keys in Postgres, namespaced by profile so
// several clients can share one database.
type SessionStore struct {
	db      *gorm.DB
	tx      TxManager
	profile string
}

func NewSessionStore(db *gorm.DB, profile string) SessionStore {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = DefaultProfile
	}
	return SessionStore{db: db, tx: NewTxManager(db), profile: profile}
}

func (s SessionStore) Get(ctx context.Context, key string) (string, error) {
	var row model.SessionEntry
	err := getDBFromCtx(ctx, s.db).
		Where(&model.SessionEntry{Profile: s.profile, Key: key}).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ports.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

func (s SessionStore) SetAll(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]model.SessionEntry, 0, len(values))
	for k, v := range values {
		rows = append(rows, model.SessionEntry{Profile: s.profile, Key: k, Value: v, UpdatedAt: now})
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return getDBFromCtx(txCtx, s.db).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
}

func (s SessionStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return getDBFromCtx(ctx, s.db).
		Where("profile = ? AND key IN ?", s.profile, keys).
		Delete(&model.SessionEntry{}).Error
}
