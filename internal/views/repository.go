package views

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aegisshield/case-dashboard/internal/config"
)

// Repository stores saved views. Every lookup is scoped to a user.
type Repository interface {
	Create(ctx context.Context, view *SavedView) error
	Get(ctx context.Context, id, userID string) (*SavedView, error)
	List(ctx context.Context, userID string) ([]SavedView, error)
	Update(ctx context.Context, view *SavedView) error
	Delete(ctx context.Context, id, userID string) error
}

// Open connects to postgres and migrates the saved_views table
func Open(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get database instance")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}
	if err := db.AutoMigrate(&SavedView{}); err != nil {
		return nil, errors.Wrap(err, "failed to migrate saved views")
	}
	return db, nil
}

// GormRepository is the postgres-backed Repository
type GormRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRepository creates a new gorm repository
func NewGormRepository(db *gorm.DB, logger *zap.Logger) *GormRepository {
	return &GormRepository{db: db, logger: logger.Named("saved_views")}
}

// Create validates and inserts a view, assigning its ID
func (r *GormRepository) Create(ctx context.Context, view *SavedView) error {
	if err := view.Validate(); err != nil {
		return err
	}
	view.ID = uuid.New().String()
	view.CreatedAt = time.Now().UTC()
	view.UpdatedAt = view.CreatedAt

	if err := r.db.WithContext(ctx).Create(view).Error; err != nil {
		return errors.Wrap(err, "failed to create saved view")
	}
	r.logger.Debug("Saved view created", zap.String("id", view.ID), zap.String("user_id", view.UserID))
	return nil
}

// Get returns one of the user's views
func (r *GormRepository) Get(ctx context.Context, id, userID string) (*SavedView, error) {
	var view SavedView
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&view).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrViewNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get saved view")
	}
	return &view, nil
}

// List returns the user's views, most recently updated first
func (r *GormRepository) List(ctx context.Context, userID string) ([]SavedView, error) {
	var list []SavedView
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at desc").Find(&list).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list saved views")
	}
	return list, nil
}

// Update replaces a view the user already owns
func (r *GormRepository) Update(ctx context.Context, view *SavedView) error {
	if err := view.Validate(); err != nil {
		return err
	}
	existing, err := r.Get(ctx, view.ID, view.UserID)
	if err != nil {
		return err
	}
	view.CreatedAt = existing.CreatedAt
	view.UpdatedAt = time.Now().UTC()

	if err := r.db.WithContext(ctx).Save(view).Error; err != nil {
		return errors.Wrap(err, "failed to update saved view")
	}
	return nil
}

// Delete removes one of the user's views
func (r *GormRepository) Delete(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&SavedView{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete saved view")
	}
	if result.RowsAffected == 0 {
		return ErrViewNotFound
	}
	return nil
}

// MemoryRepository keeps views in process. It is used when no database is
// configured; views do not survive a restart.
type MemoryRepository struct {
	mu    sync.RWMutex
	views map[string]SavedView
	now   func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		views: make(map[string]SavedView),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) Create(_ context.Context, view *SavedView) error {
	if err := view.Validate(); err != nil {
		return err
	}
	view.ID = uuid.New().String()
	view.CreatedAt = r.now()
	view.UpdatedAt = view.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[view.ID] = *view
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id, userID string) (*SavedView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	view, ok := r.views[id]
	if !ok || view.UserID != userID {
		return nil, ErrViewNotFound
	}
	return &view, nil
}

func (r *MemoryRepository) List(_ context.Context, userID string) ([]SavedView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]SavedView, 0)
	for _, view := range r.views {
		if view.UserID == userID {
			list = append(list, view)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

func (r *MemoryRepository) Update(_ context.Context, view *SavedView) error {
	if err := view.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.views[view.ID]
	if !ok || existing.UserID != view.UserID {
		return ErrViewNotFound
	}
	view.CreatedAt = existing.CreatedAt
	view.UpdatedAt = r.now()
	r.views[view.ID] = *view
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	view, ok := r.views[id]
	if !ok || view.UserID != userID {
		return ErrViewNotFound
	}
	delete(r.views, id)
	return nil
}
