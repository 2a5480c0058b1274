package models

import (
	"gorm.io/gorm"
)

// Platform identifies the storefront software behind an integration.
type Platform string

const (
	PlatformShopify     Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformWordPress   Platform = "wordpress"
	PlatformCustom      Platform = "custom"
)

// Integration is a tenant's connected storefront. The webhook secret signs
// order webhooks and doubles as the bearer credential of the customer webhook.
type Integration struct {
	gorm.Model
	UserID uint `gorm:"not null;index" json:"user_id"`

	Name          string   `gorm:"not null" json:"name"`
	Type          Platform `gorm:"type:varchar(32);not null" json:"type"`
	Domain        string   `gorm:"not null;uniqueIndex:ux_integrations_domain" json:"domain"`
	WebhookSecret string   `gorm:"not null;uniqueIndex:ux_integrations_webhook_secret" json:"-"`
	IsActive      bool     `gorm:"default:true" json:"is_active"`
	BaseURL       string   `json:"base_url"`
	AccessToken   *string  `json:"-"`

	// Relations
	User   User    `json:"-"`
	Orders []Order `gorm:"foreignKey:IntegrationID" json:"orders,omitempty"`
}
