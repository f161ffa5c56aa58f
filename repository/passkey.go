package repository

import (
	"errors"
	"passkey_auth_ms/domain"
	"time"

	"gorm.io/gorm"
)

type IPasskeyRepository interface {
	Create(db *gorm.DB, passkey *domain.Passkey) error
	GetByUserID(db *gorm.DB, userID uint) ([]domain.Passkey, error)
	GetByCredentialID(db *gorm.DB, credentialID []byte) (*domain.Passkey, error)
	UpdateSignCount(db *gorm.DB, credentialID []byte, reported uint32) error
	Delete(db *gorm.DB, credentialID []byte) error
	DeleteAllForUser(db *gorm.DB, userID uint) error
}

type PasskeyRepository struct {
}

func NewPasskeyRepository() IPasskeyRepository {
	return &PasskeyRepository{}
}

// Create inserts a new credential row. The unique index on credential_id is
// the authority for duplicates, not a prior lookup, so two concurrent
// registrations of the same authenticator cannot both succeed.
func (r *PasskeyRepository) Create(db *gorm.DB, passkey *domain.Passkey) error {
	if err := db.Create(passkey).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateCredential
		}
		return err
	}
	return nil
}

func (r *PasskeyRepository) GetByUserID(db *gorm.DB, userID uint) ([]domain.Passkey, error) {
	var passkeys []domain.Passkey
	if err := db.Where("user_id = ?", userID).Find(&passkeys).Error; err != nil {
		return nil, err
	}
	return passkeys, nil
}

func (r *PasskeyRepository) GetByCredentialID(db *gorm.DB, credentialID []byte) (*domain.Passkey, error) {
	var passkey domain.Passkey
	err := db.Where("credential_id = ?", credentialID).First(&passkey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUnknownCredential
		}
		return nil, err
	}
	return &passkey, nil
}

// UpdateSignCount advances the stored counter in a single conditional UPDATE.
// The `sign_count < ?` predicate makes the monotonicity check atomic with the
// write; zero affected rows means the reported counter did not move forward.
func (r *PasskeyRepository) UpdateSignCount(db *gorm.DB, credentialID []byte, reported uint32) error {
	res := db.Model(&domain.Passkey{}).
		Where("credential_id = ? AND sign_count < ?", credentialID, reported).
		Updates(map[string]interface{}{
			"sign_count": reported,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrReplayDetected
	}
	return nil
}

func (r *PasskeyRepository) Delete(db *gorm.DB, credentialID []byte) error {
	return db.Where("credential_id = ?", credentialID).Delete(&domain.Passkey{}).Error
}

func (r *PasskeyRepository) DeleteAllForUser(db *gorm.DB, userID uint) error {
	return db.Where("user_id = ?", userID).Delete(&domain.Passkey{}).Error
}
