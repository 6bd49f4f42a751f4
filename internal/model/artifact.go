package model

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// BrandAnalysis is the output of the brand analysis stage.
type BrandAnalysis struct {
	WebsiteURL     string `json:"websiteUrl"`
	Analysis       string `json:"analysis"`
	ScrapedContent string `json:"scrapedContent"`
}

// AppConcept is the output of the app concept stage.
type AppConcept struct {
	BrandAnalysis string    `json:"brandAnalysis"`
	Concepts      string    `json:"concepts"`
	GeneratedAt   time.Time `json:"generatedAt"`
}

// EncodeBrandAnalysis serializes a brand analysis for storage.
func EncodeBrandAnalysis(b BrandAnalysis) (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", eris.Wrap(err, "model: encode brand analysis")
	}
	return string(data), nil
}

// DecodeBrandAnalysis parses a stored brand analysis.
func DecodeBrandAnalysis(s string) (*BrandAnalysis, error) {
	var b BrandAnalysis
	if err := json.Unmarshal([]byte(s), &b); err != nil {
		return nil, eris.Wrap(err, "model: decode brand analysis")
	}
	return &b, nil
}

// EncodeAppConcept serializes an app concept for storage.
func EncodeAppConcept(c AppConcept) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", eris.Wrap(err, "model: encode app concept")
	}
	return string(data), nil
}

// DecodeAppConcept parses a stored app concept.
func DecodeAppConcept(s string) (*AppConcept, error) {
	var c AppConcept
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, eris.Wrap(err, "model: decode app concept")
	}
	return &c, nil
}
