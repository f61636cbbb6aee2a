// Package gorm persists users and roles with GORM. Uniqueness invariants
// (one user per email, one role per name) live here as unique indexes; the
// reconciliation engine depends on duplicate-key rejections from this layer
// to settle concurrent-create races.
package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	ac "github.com/rjoshi/authcore"
)

// StringSlice is a helper type for storing string slices as JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// UserModel is the GORM model for users
type UserModel struct {
	ID           string `gorm:"primaryKey;size:64"`
	Email        string `gorm:"size:255;uniqueIndex"`
	PasswordHash string `gorm:"size:128"`
	IsVerified   bool   `gorm:"default:false"`

	GoogleID          string `gorm:"size:128"`
	GoogleAccessToken string `gorm:"size:512"`

	FacebookID          string `gorm:"size:128"`
	FacebookAccessToken string `gorm:"size:512"`

	LinkedinID          string `gorm:"size:128"`
	LinkedinAccessToken string `gorm:"size:512"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *ac.User {
	return &ac.User{
		ID:                  m.ID,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		IsVerified:          m.IsVerified,
		GoogleID:            m.GoogleID,
		GoogleAccessToken:   m.GoogleAccessToken,
		FacebookID:          m.FacebookID,
		FacebookAccessToken: m.FacebookAccessToken,
		LinkedinID:          m.LinkedinID,
		LinkedinAccessToken: m.LinkedinAccessToken,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func UserToModel(u *ac.User) *UserModel {
	return &UserModel{
		ID:                  u.ID,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		IsVerified:          u.IsVerified,
		GoogleID:            u.GoogleID,
		GoogleAccessToken:   u.GoogleAccessToken,
		FacebookID:          u.FacebookID,
		FacebookAccessToken: u.FacebookAccessToken,
		LinkedinID:          u.LinkedinID,
		LinkedinAccessToken: u.LinkedinAccessToken,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

// RoleModel is the GORM model for roles
type RoleModel struct {
	ID                string      `gorm:"primaryKey;size:64"`
	Name              string      `gorm:"size:255;uniqueIndex"`
	ActionsPermission StringSlice `gorm:"type:text"`
	PagesPermission   StringSlice `gorm:"type:text"`
	CreatedAt         time.Time   `gorm:"autoCreateTime"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime"`
}

func (RoleModel) TableName() string {
	return "roles"
}

func (m *RoleModel) ToRole() *ac.Role {
	return &ac.Role{
		ID:                m.ID,
		Name:              m.Name,
		ActionsPermission: m.ActionsPermission,
		PagesPermission:   m.PagesPermission,
	}
}

func RoleToModel(r *ac.Role) *RoleModel {
	return &RoleModel{
		ID:                r.ID,
		Name:              r.Name,
		ActionsPermission: StringSlice(r.ActionsPermission),
		PagesPermission:   StringSlice(r.PagesPermission),
	}
}
