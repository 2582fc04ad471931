package repository

import (
	"time"

	"backend/internal/app/ds"
)

// GetUserByEmail возвращает пользователя портала по email
func (r *Repository) GetUserByEmail(email string) (*ds.PortalUser, error) {
	var user ds.PortalUser
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID возвращает пользователя портала по id
func (r *Repository) GetUserByID(id uint) (*ds.PortalUser, error) {
	var user ds.PortalUser
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UserExistsByEmail проверяет существует ли пользователь
func (r *Repository) UserExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&ds.PortalUser{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// CreateUser создаёт приглашённого пользователя портала
func (r *Repository) CreateUser(user *ds.PortalUser) error {
	return r.db.Create(user).Error
}

// GetUserByMagicToken ищет пользователя по одноразовому magic-link токену
func (r *Repository) GetUserByMagicToken(token string) (*ds.PortalUser, error) {
	var user ds.PortalUser
	if err := r.db.Where("magic_link_token = ?", token).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ConsumeMagicToken гасит токен после использования и фиксирует вход
func (r *Repository) ConsumeMagicToken(userID uint) error {
	now := time.Now()
	return r.db.Model(&ds.PortalUser{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"magic_link_token":  nil,
		"magic_link_expiry": nil,
		"last_login_at":     &now,
	}).Error
}

// TouchLastLogin фиксирует время входа
func (r *Repository) TouchLastLogin(userID uint) error {
	now := time.Now()
	return r.db.Model(&ds.PortalUser{}).Where("id = ?", userID).
		Update("last_login_at", &now).Error
}
