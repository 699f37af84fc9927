package models

import "gorm.io/datatypes"

// Question types. The type tag governs which Answer columns get populated.
const (
	QuestionShortText      = "short_text"
	QuestionParagraph      = "paragraph"
	QuestionCheckbox       = "checkbox"
	QuestionMultipleChoice = "multiple_choice"
	QuestionDropdown       = "dropdown"
	QuestionImageUpload    = "image_upload"
	QuestionFileUpload     = "file_upload"
)

type Question struct {
	ID                uint           `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FormID            uint           `gorm:"column:form_id;not null;index" json:"form_id"`
	QuestionText      string         `gorm:"column:question_text;type:text;not null" json:"question_text"`
	QuestionType      string         `gorm:"column:question_type;size:50;not null" json:"question_type"`
	Options           datatypes.JSON `gorm:"column:options" json:"options"`
	Required          bool           `gorm:"column:required;default:false" json:"required"`
	Placeholder       string         `gorm:"column:placeholder;size:255" json:"placeholder"`
	MaxImages         int            `gorm:"column:max_images;default:0" json:"max_images"`
	CheckboxOptions   datatypes.JSON `gorm:"column:checkbox_options" json:"checkbox_options"`
	ChoiceOptions     datatypes.JSON `gorm:"column:choice_options" json:"choice_options"`
	AdminImages       datatypes.JSON `gorm:"column:admin_images" json:"admin_images"`
	EnableAdminImages bool           `gorm:"column:enable_admin_images;default:false" json:"enable_admin_images"`
	Position          int            `gorm:"column:position;default:0" json:"position"`

	Form    Form     `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" json:"-"`
	Answers []Answer `gorm:"foreignKey:QuestionID" json:"-"`
}

func (Question) TableName() string {
	return "questions"
}
