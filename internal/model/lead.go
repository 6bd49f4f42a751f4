package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// LeadStatus represents where a lead is in its lifecycle.
type LeadStatus string

const (
	LeadStatusPending       LeadStatus = "PENDING"
	LeadStatusReviewPending LeadStatus = "REVIEW_PENDING"
	LeadStatusError         LeadStatus = "ERROR"
	LeadStatusSent          LeadStatus = "SENT"
)

// transitions lists every reachable status change. Anything absent is rejected.
var transitions = map[LeadStatus][]LeadStatus{
	LeadStatusPending:       {LeadStatusReviewPending, LeadStatusError},
	LeadStatusReviewPending: {LeadStatusSent},
}

// CanTransition reports whether a lead may move from one status to another.
func CanTransition(from, to LeadStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusPending, LeadStatusReviewPending, LeadStatusError, LeadStatusSent:
		return true
	}
	return false
}

// ParseLeadStatus converts a stored status, rejecting unknown values.
func ParseLeadStatus(s string) (LeadStatus, error) {
	status := LeadStatus(s)
	if !status.Valid() {
		return "", eris.Errorf("model: unknown lead status %q", s)
	}
	return status, nil
}

// Lead is a single prospective contact progressing through enrichment to outreach.
type Lead struct {
	ID            int64          `json:"id"`
	CampaignID    int64          `json:"campaign_id"`
	CompanyName   string         `json:"company_name"`
	WebsiteURL    string         `json:"website_url"`
	ContactEmail  *string        `json:"contact_email,omitempty"`
	BrandAnalysis *BrandAnalysis `json:"brand_analysis,omitempty"`
	AppConcept    *AppConcept    `json:"app_concept,omitempty"`
	MockupPath    *string        `json:"mockup_path,omitempty"`
	EmailContent  *string        `json:"email_content,omitempty"`
	Status        LeadStatus     `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	ProcessedAt   *time.Time     `json:"processed_at,omitempty"`
	SentAt        *time.Time     `json:"sent_at,omitempty"`
}

// NewLead is the data needed to persist a freshly scraped lead.
type NewLead struct {
	CompanyName  string
	WebsiteURL   string
	ContactEmail *string
}

// LeadArtifacts holds the outputs written when enrichment succeeds.
type LeadArtifacts struct {
	BrandAnalysis BrandAnalysis
	AppConcept    AppConcept
	MockupPath    string
	EmailContent  string
}

// HasContactEmail reports whether the lead can be emailed.
func (l *Lead) HasContactEmail() bool {
	return l.ContactEmail != nil && *l.ContactEmail != ""
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
