package models

import (
	"gorm.io/gorm"
)

// User is a tenant of the dashboard. Every integration, customer and lead
// belongs to exactly one user.
type User struct {
	gorm.Model

	Email    string  `gorm:"uniqueIndex;not null" json:"email"`
	Name     *string `json:"name,omitempty"`
	Company  *string `json:"company,omitempty"`
	IsActive bool    `gorm:"default:true" json:"is_active"`

	// Notification settings
	TelegramChatID *string `json:"telegram_chat_id,omitempty"`

	// Relations
	Integrations []Integration `gorm:"foreignKey:UserID" json:"integrations,omitempty"`
	Customers    []Customer    `gorm:"foreignKey:UserID" json:"customers,omitempty"`
	CrmLeads     []CrmLead     `gorm:"foreignKey:UserID" json:"crm_leads,omitempty"`
}
