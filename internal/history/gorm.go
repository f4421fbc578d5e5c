package history

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Conceptual-Machines/musicability-api/internal/models"
)

// Gorm is a Store backed by a SQL database through gorm.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an open gorm connection. The generation_records table must
// already be migrated.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (g *Gorm) Save(ctx context.Context, r *models.GenerationRecord) error {
	if err := validate(r); err != nil {
		return err
	}
	if err := g.db.WithContext(ctx).Save(r).Error; err != nil {
		return fmt.Errorf("history: save record %s: %w", r.ID, err)
	}
	return nil
}

func (g *Gorm) Get(ctx context.Context, id string) (*models.GenerationRecord, error) {
	var r models.GenerationRecord
	if err := g.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, getError(id, err)
	}
	return &r, nil
}

func (g *Gorm) List(ctx context.Context, userID string, limit int) ([]models.GenerationRecord, error) {
	var records []models.GenerationRecord
	if err := listQuery(g.db.WithContext(ctx), userID, limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("history: list records: %w", err)
	}
	return records, nil
}

func getError(id string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("history: get record %s: %w", id, err)
}

func listQuery(db *gorm.DB, userID string, limit int) *gorm.DB {
	if userID != "" {
		db = db.Where("user_id = ?", userID)
	}
	return db.
		Order("created_at DESC").
		Order("id").
		Limit(ClampLimit(limit))
}

func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*Gorm)(nil)
