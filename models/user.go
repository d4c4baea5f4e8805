package models

import (
	"context"
	"errors"
	"time"

	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/utils"
	"gorm.io/gorm"
)

// User is a back-office account. EDITOR manages inventory; ADMIN additionally
// manages users and triggers imports.
type User struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Name         *string   `gorm:"size:100" json:"name"`
	Email        string    `gorm:"size:200;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	Role         UserRole  `gorm:"type:enum('ADMIN','EDITOR');not null;default:'EDITOR'" json:"role"`
	Phone        *string   `gorm:"size:20" json:"phone"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     *string  `json:"name" binding:"omitempty,max=100"`
	Email    string   `json:"email" binding:"required,email,max=200"`
	Password string   `json:"password" binding:"required,min=8,max=100"`
	Role     UserRole `json:"role"`
	Phone    *string  `json:"phone" binding:"omitempty,max=20"`
	Active   *bool    `json:"active"`
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	if input.Role == "" {
		input.Role = UserRoleEditor
	}
	if !input.Role.Valid() {
		return nil, errors.New("invalid role")
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         input.Role,
		Phone:        input.Phone,
		Active:       true,
	}
	if input.Active != nil {
		user.Active = *input.Active
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, errors.New("email already in use")
		}
		return nil, err
	}
	return user, nil
}

type UpdateUserInput struct {
	Name     *string   `json:"name" binding:"omitempty,max=100"`
	Password *string   `json:"password" binding:"omitempty,min=8,max=100"`
	Role     *UserRole `json:"role"`
	Phone    *string   `json:"phone" binding:"omitempty,max=20"`
	Active   *bool     `json:"active"`
}

// UpdateUser applies a partial edit. actorId guards against an admin locking
// themselves out: you cannot demote or deactivate your own account.
func UpdateUser(ctx context.Context, id int, actorId int, input *UpdateUserInput) (*User, error) {
	db := config.GetDB()
	user, err := GetUserById(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Password != nil {
		hash, err := utils.HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = string(hash)
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, errors.New("invalid role")
		}
		if id == actorId && *input.Role != user.Role {
			return nil, errors.New("cannot change own role")
		}
		updates["role"] = *input.Role
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Active != nil {
		if id == actorId && !*input.Active {
			return nil, errors.New("cannot deactivate own account")
		}
		updates["active"] = *input.Active
	}

	if len(updates) == 0 {
		return user, nil
	}
	if err := db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetUserById(ctx, id)
}

func DeleteUser(ctx context.Context, id int, actorId int) error {
	if id == actorId {
		return errors.New("cannot delete own account")
	}
	db := config.GetDB()
	return db.WithContext(ctx).Delete(&User{}, "id = ?", id).Error
}

func GetUserById(ctx context.Context, id int) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func ListUsers(ctx context.Context) ([]User, error) {
	db := config.GetDB()
	var users []User
	err := db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}

// AuthenticateUser verifies credentials for login. Inactive accounts fail the
// same way as wrong passwords; callers must not reveal which one it was.
func AuthenticateUser(ctx context.Context, email string, password string) (*User, error) {
	db := config.GetDB()
	var user User
	err := db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, utils.ErrorUnauthorized
	}
	if err := utils.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, utils.ErrorUnauthorized
	}
	return &user, nil
}
