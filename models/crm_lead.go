package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LogisticStatusPending = "pending"

	CodStatusWaiting   = "waiting"
	CodStatusConfirmed = "confirmed"
	CodStatusRejected  = "rejected"

	KpiStatusNewLead = "new_lead"

	LeadEventCreated = "lead_created"
)

// CrmLead is the sales-pipeline record created for each newly ingested order.
type CrmLead struct {
	gorm.Model
	OrderID *uint `gorm:"index" json:"order_id"`
	UserID  uint  `gorm:"not null;index" json:"user_id"`

	Name   string `json:"name"`
	Email  string `gorm:"index" json:"email"`
	Phone  string `json:"phone"`
	Source string `json:"source"` // e.g. "Shopify (My Store)"

	// Status
	LogisticStatus string `gorm:"default:'pending'" json:"logistic_status"`
	CodStatus      string `gorm:"default:'waiting'" json:"cod_status"`
	KpiStatus      string `gorm:"default:'new_lead'" json:"kpi_status"`

	// Relations
	Events []CrmLeadEvent `gorm:"foreignKey:LeadID" json:"events,omitempty"`
}

// CrmLeadEvent is an append-only audit record attached to a lead.
type CrmLeadEvent struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	LeadID    uint           `gorm:"not null;index" json:"lead_id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	EventType string         `gorm:"not null" json:"event_type"`
	Details   datatypes.JSON `gorm:"type:jsonb" json:"details"`
	CreatedAt time.Time      `json:"created_at"`
}
