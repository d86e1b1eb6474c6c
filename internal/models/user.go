package models

type User struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex" json:"username"`
	PasswordHash string `gorm:"column:password" json:"passwordHash,omitempty"`
}

func (User) TableName() string { return "users" }

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
	}
}
