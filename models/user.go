package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:100;not null" json:"name"`
	Email     string    `gorm:"column:email;size:255;unique;not null" json:"email"`
	Password  string    `gorm:"column:password;size:255;not null" json:"-"` // bcrypt hash, never serialized
	Role      string    `gorm:"column:role;size:20;not null;default:'user'" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Forms     []Form     `gorm:"foreignKey:CreatedBy" json:"-"`
	Responses []Response `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
