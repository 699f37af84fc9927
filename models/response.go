package models

import "time"

// Response is one accepted submission against a form. Rows are append-only
// audit records; nothing mutates them after creation.
type Response struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FormID          uint      `gorm:"column:form_id;not null;index" json:"form_id"`
	UserID          *uint     `gorm:"column:user_id" json:"user_id"`
	RespondentEmail *string   `gorm:"column:respondent_email;size:255" json:"respondent_email"`
	IPAddress       string    `gorm:"column:ip_address;size:64" json:"ip_address"`
	SubmittedAt     time.Time `gorm:"column:submitted_at;autoCreateTime" json:"submitted_at"`

	Form    *Form    `gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE" json:"-"`
	User    *User    `gorm:"foreignKey:UserID" json:"-"`
	Answers []Answer `gorm:"foreignKey:ResponseID" json:"-"`
}

func (Response) TableName() string {
	return "responses"
}
