package models

import (
	"errors"
	"memorylane/utils"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string `gorm:"type:varchar(100)"`
	Email     string `gorm:"type:varchar(150);index:uniq_email,unique"`
	Password  string `gorm:"type:varchar(128)"`
	PassSalt  string `gorm:"type:varchar(200)"`
}

const saltSize = 60

var ErrInvalidCredentials = errors.New("invalid email or password")

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

func (u *User) SetPassword(plainTextPassword string) {
	u.PassSalt = utils.RandSalt(saltSize)
	u.Password = utils.Sha512String(plainTextPassword + u.PassSalt)
}

func (u *User) CheckPassword(plainTextPassword string) bool {
	return u.Password == utils.Sha512String(plainTextPassword+u.PassSalt)
}

func UserCreate(db *gorm.DB, name, email, plainTextPassword string) (u User, err error) {
	u.Email = email
	u.Name = name
	u.SetPassword(plainTextPassword)
	return u, db.Create(&u).Error
}

func UserLogin(db *gorm.DB, email, plainTextPassword string) (u User, err error) {
	result := db.First(&u, "email = ?", strings.ToLower(strings.TrimSpace(email)))
	if result.Error != nil || !u.CheckPassword(plainTextPassword) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}
