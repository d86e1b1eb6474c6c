package models

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Form is a named schema addressed publicly by its Hash.
type Form struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Title     string    `json:"title"`
	Hash      string    `gorm:"uniqueIndex" json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Form) TableName() string { return "forms" }

// FormOwner records the single account allowed to query a form. Forms
// created before ownership tracking have no row.
type FormOwner struct {
	FormID   int64  `gorm:"primaryKey;autoIncrement:false" json:"formId"`
	Username string `gorm:"index" json:"username"`
}

func (FormOwner) TableName() string { return "form_owners" }

// Control is a field definition. FieldTitle is the key submissions are
// stored under.
type Control struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	FormID      int64  `gorm:"index" json:"formId"`
	FieldTitle  string `json:"fieldTitle"`
	Description string `json:"description,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Type        string `json:"type"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
	Required    bool   `json:"required,omitempty"`
	FieldValues string `json:"fieldValues,omitempty"`
}

func (Control) TableName() string { return "controls" }

// Options returns the allowed values of a choice-list control.
func (c Control) Options() []string {
	if strings.TrimSpace(c.FieldValues) == "" {
		return nil
	}
	return lo.Map(strings.Split(c.FieldValues, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	})
}

// Schema is a form's controls in definition order.
type Schema []Control

// Titles returns the field titles in definition order.
func (s Schema) Titles() []string {
	return lo.Map(s, func(c Control, _ int) string { return c.FieldTitle })
}
