package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// PublicUsername is the reserved account that owns anonymously created links.
const PublicUsername = "public"

// User represents a registered account, or the public owner
type User struct {
	ID           uint      `gorm:"primarykey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null;default:''"` // empty for the public user, which can never log in

	// Relationships
	Links []Link `gorm:"foreignKey:UserID"`
}

// IsPublic reports whether u is the reserved public owner.
func (u User) IsPublic() bool {
	return u.Username == PublicUsername
}

// EnsurePublicUser returns the public user, creating it on first start.
func EnsurePublicUser(db *gorm.DB) (User, error) {
	var user User
	err := db.Where("username = ?", PublicUsername).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, err
	}

	user = User{Username: PublicUsername, PasswordHash: ""}
	if err := db.Create(&user).Error; err != nil {
		// another process may have created it between the lookup and the insert
		if lookupErr := db.Where("username = ?", PublicUsername).First(&user).Error; lookupErr == nil {
			return user, nil
		}
		return User{}, err
	}
	return user, nil
}
