package model

import (
	"fmt"
	"time"
)

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusActive CampaignStatus = "ACTIVE"
)

// Campaign is a batch request for N leads matching a business type and location.
type Campaign struct {
	ID            int64          `json:"id"`
	Name          string         `json:"name"`
	BusinessType  string         `json:"business_type"`
	Location      string         `json:"location"`
	NumberOfLeads int            `json:"number_of_leads"`
	Status        CampaignStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`

	// Derived from owned leads on read, never stored.
	TotalLeads int `json:"total_leads"`
	SentLeads  int `json:"sent_leads"`
	ReadyLeads int `json:"ready_leads"`
}

// CampaignRequest is the user input that creates a campaign.
type CampaignRequest struct {
	BusinessType  string `json:"business_type" validate:"required,max=200"`
	Location      string `json:"location" validate:"required,max=200"`
	NumberOfLeads int    `json:"number_of_leads" validate:"required,min=1,max=500"`
}

// CampaignName derives the display name of a campaign.
func CampaignName(businessType, location string) string {
	return fmt.Sprintf("%s in %s", businessType, location)
}
