package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities.
// Soft-deactivated accounts stay visible through it; isActive filtering is
// explicit per method rather than a GORM soft-delete.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetActiveByID(ctx context.Context, id uint) (*model.User, error)
	// GetActiveByUsername only matches active accounts; sign-in must not see
	// deactivated users.
	GetActiveByUsername(ctx context.Context, username string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// List filters on is_active when active is non-nil, otherwise returns all.
	List(ctx context.Context, active *bool) ([]model.User, error)
	Save(ctx context.Context, user *model.User) error
	// UpdateFields applies a partial column update without touching the rest
	// of the row.
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetActiveByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetActiveByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "username = ? AND is_active = ?", username, true).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, active *bool) ([]model.User, error) {
	var users []model.User
	db := GetDB(ctx, r.db).Model(&model.User{})
	if active != nil {
		db = db.Where("is_active = ?", *active)
	}
	if err := db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Save(user).Error
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}
