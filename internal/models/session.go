package models

import "time"

// User is the cached profile of the signed-in account.
type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
}

// Session is what a tab knows about its authentication. User is only
// meaningful when Token is set; a token without a user is valid.
type Session struct {
	Token string `json:"token,omitempty"`
	User  *User  `json:"user,omitempty"`
}

func (s Session) HasToken() bool {
	return s.Token != ""
}

// TabItem is one key of a tab's storage when the postgres backend is used.
type TabItem struct {
	Scope     string    `gorm:"type:text;primaryKey" json:"scope"`
	Key       string    `gorm:"type:text;primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `gorm:"type:timestamp;index;default:now()" json:"updated_at"`
}

func (TabItem) TableName() string {
	return "tab_items"
}
