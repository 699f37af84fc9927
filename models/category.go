package models

type Category struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Title       string `gorm:"column:title;size:255;not null" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description"`

	Forms []Form `gorm:"foreignKey:CategoryID" json:"-"`
}

func (Category) TableName() string {
	return "categories"
}
