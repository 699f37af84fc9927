package models

import "time"

// Form is a named collection of questions plus its submission policy.
// CategoryID is nullable; a form without a category is a "general" form.
type Form struct {
	ID                     uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title                  string    `gorm:"column:title;size:255;not null" json:"title"`
	Description            string    `gorm:"column:description;type:text" json:"description"`
	CategoryID             *uint     `gorm:"column:category_id" json:"category_id"`
	AllowMultipleResponses bool      `gorm:"column:allow_multiple_responses;default:false" json:"allow_multiple_responses"`
	RequireEmail           bool      `gorm:"column:require_email;default:false" json:"require_email"`
	CreatedBy              *uint     `gorm:"column:created_by" json:"created_by"`
	CreatedAt              time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Creator   *User      `gorm:"foreignKey:CreatedBy;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"-"`
	Category  *Category  `gorm:"foreignKey:CategoryID" json:"-"`
	Questions []Question `gorm:"foreignKey:FormID" json:"-"`
	Responses []Response `gorm:"foreignKey:FormID" json:"-"`
}

func (Form) TableName() string {
	return "forms"
}
