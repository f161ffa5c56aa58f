package repository

import (
	"errors"
	"passkey_auth_ms/domain"

	"gorm.io/gorm"
)

type IUserRepository interface {
	GetByPid(db *gorm.DB, pid string) (*domain.User, error)
	GetByPidWithPasskeys(db *gorm.DB, pid string) (*domain.User, error)
	GetByIDWithPasskeys(db *gorm.DB, id uint) (*domain.User, error)
	Create(db *gorm.DB, entity *domain.User) (*domain.User, error)
	Delete(db *gorm.DB, pid string) error
}

type UserRepository struct {
}

func NewUserRepository() IUserRepository {
	return &UserRepository{}
}

func (u *UserRepository) GetByPid(db *gorm.DB, pid string) (*domain.User, error) {
	var user domain.User
	err := db.Where("pid = ?", pid).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownUser
		}
		return nil, err
	}
	return &user, nil
}

func (u *UserRepository) GetByPidWithPasskeys(db *gorm.DB, pid string) (*domain.User, error) {
	var user domain.User
	err := db.Preload("Passkeys").Where("pid = ?", pid).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownUser
		}
		return nil, err
	}
	return &user, nil
}

func (u *UserRepository) GetByIDWithPasskeys(db *gorm.DB, id uint) (*domain.User, error) {
	var user domain.User
	err := db.Preload("Passkeys").First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownUser
		}
		return nil, err
	}
	return &user, nil
}

func (u *UserRepository) Create(db *gorm.DB, entity *domain.User) (*domain.User, error) {
	return entity, db.Create(entity).Error
}

func (u *UserRepository) Delete(db *gorm.DB, pid string) error {
	return db.Where("pid = ?", pid).Delete(&domain.User{}).Error
}
