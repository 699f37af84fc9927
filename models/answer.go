package models

// Answer is one normalized value for one question within one response.
// The list-valued columns hold JSON text; nil means the column was never
// populated for this answer's question type, which is distinct from an
// empty list.
type Answer struct {
	ID              uint    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ResponseID      uint    `gorm:"column:response_id;not null;index" json:"response_id"`
	QuestionID      uint    `gorm:"column:question_id;not null;index" json:"question_id"`
	AnswerText      *string `gorm:"column:answer_text;type:text" json:"answer_text"`
	ImagePaths      *string `gorm:"column:image_paths;type:text" json:"image_paths"`
	ImageResponses  *string `gorm:"column:image_responses;type:text" json:"image_responses"`
	FilePaths       *string `gorm:"column:file_paths;type:text" json:"file_paths"`
	SelectedOptions *string `gorm:"column:selected_options;type:text" json:"selected_options"`
	SelectedChoices *string `gorm:"column:selected_choices;type:text" json:"selected_choices"`
	ImageURLs       *string `gorm:"column:image_urls;type:text" json:"image_urls"`

	Response Response  `gorm:"foreignKey:ResponseID;constraint:OnDelete:CASCADE" json:"-"`
	Question *Question `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Answer) TableName() string {
	return "answers"
}
