package gorm

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	ac "github.com/rjoshi/authcore"
)

// AutoMigrate runs database migrations for all authcore tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&RoleModel{},
	)
}

// IsDuplicateKey reports whether err is a unique-constraint rejection.
// gorm.ErrDuplicatedKey covers drivers opened with TranslateError; the
// string checks cover the rest.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "Duplicate entry")
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements ac.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, user *ac.User) error {
	if err := s.db.WithContext(ctx).Create(UserToModel(user)).Error; err != nil {
		if IsDuplicateKey(err) {
			return ac.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*ac.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ac.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*ac.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ac.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) MarkVerified(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", id).
		Update("is_verified", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ac.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) SetProviderLink(ctx context.Context, id, provider, subjectID, accessToken string) error {
	updates := map[string]any{"is_verified": true}
	switch provider {
	case ac.ProviderGoogle:
		updates["google_id"] = subjectID
		updates["google_access_token"] = accessToken
	case ac.ProviderFacebook:
		updates["facebook_id"] = subjectID
		updates["facebook_access_token"] = accessToken
	case ac.ProviderLinkedin:
		updates["linkedin_id"] = subjectID
		updates["linkedin_access_token"] = accessToken
	default:
		return errors.New("unknown provider " + provider)
	}

	result := s.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ac.ErrUserNotFound
	}
	return nil
}

// =============================================================================
// RoleStore
// =============================================================================

// RoleStore implements ac.RoleStore using GORM
type RoleStore struct {
	db *gorm.DB
}

func NewRoleStore(db *gorm.DB) *RoleStore {
	return &RoleStore{db: db}
}

func (s *RoleStore) Create(ctx context.Context, role *ac.Role) error {
	if err := s.db.WithContext(ctx).Create(RoleToModel(role)).Error; err != nil {
		if IsDuplicateKey(err) {
			return ac.ErrRoleExists
		}
		return err
	}
	return nil
}

func (s *RoleStore) GetByID(ctx context.Context, id string) (*ac.Role, error) {
	var model RoleModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ac.ErrRoleNotFound
		}
		return nil, err
	}
	return model.ToRole(), nil
}

func (s *RoleStore) GetByName(ctx context.Context, name string) (*ac.Role, error) {
	var model RoleModel
	if err := s.db.WithContext(ctx).First(&model, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ac.ErrRoleNotFound
		}
		return nil, err
	}
	return model.ToRole(), nil
}

func (s *RoleStore) List(ctx context.Context) ([]*ac.Role, error) {
	var models []RoleModel
	if err := s.db.WithContext(ctx).Order("created_at").Find(&models).Error; err != nil {
		return nil, err
	}
	roles := make([]*ac.Role, len(models))
	for i, m := range models {
		roles[i] = m.ToRole()
	}
	return roles, nil
}

func (s *RoleStore) Update(ctx context.Context, role *ac.Role) error {
	result := s.db.WithContext(ctx).Model(&RoleModel{}).
		Where("id = ?", role.ID).
		Updates(map[string]any{
			"name":               role.Name,
			"actions_permission": StringSlice(role.ActionsPermission),
			"pages_permission":   StringSlice(role.PagesPermission),
		})
	if result.Error != nil {
		if IsDuplicateKey(result.Error) {
			return ac.ErrRoleExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ac.ErrRoleNotFound
	}
	return nil
}

func (s *RoleStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&RoleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ac.ErrRoleNotFound
	}
	return nil
}
