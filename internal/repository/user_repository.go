package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"today-planner/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// UpsertByEmail finds the user with the given email or creates it, using fixedID when set.
func (r *UserRepository) UpsertByEmail(ctx context.Context, email, fixedID string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{ID: fixedID, Email: email}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) TodayRevision(ctx context.Context, userID string) (int64, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.TodayRevision, nil
}

func (r *UserRepository) BumpTodayRevision(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		UpdateColumn("today_revision", gorm.Expr("today_revision + 1"))
	if res.Error != nil {
		return fmt.Errorf("bump today revision: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
