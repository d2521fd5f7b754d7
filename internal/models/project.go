package models

import "time"

// LLM provider selectors stored on a project.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Project is a tenant-owned configuration record. The LLMAPIKey, SMTPPass
// and APIKey columns hold sealed ciphertext at rest; the store package
// seals on write and opens on read. APIKeyID is the public lookup key and
// is stored plaintext.
type Project struct {
	ID      string `gorm:"primaryKey;size:36"`
	OwnerID string `gorm:"size:64;index"`
	Name    string `gorm:"size:128;not null"`

	// LLM configuration (optional as a set).
	LLMProvider string `gorm:"size:16"`
	LLMAPIKey   string `gorm:"size:512"`
	LLMModel    string `gorm:"size:64"`

	// Mail configuration (optional as a set).
	SMTPUser string `gorm:"size:128"`
	SMTPPass string `gorm:"size:512"`
	EmailTo  string `gorm:"size:128"`

	// Issued API credential.
	APIKeyID string `gorm:"size:64;index"`
	APIKey   string `gorm:"size:512"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Logs []ErrorLog `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
}

// HasLLMConfig reports whether all three LLM fields are set.
func (p *Project) HasLLMConfig() bool {
	return p.LLMProvider != "" && p.LLMAPIKey != "" && p.LLMModel != ""
}

// HasMailConfig reports whether all three mail fields are set.
func (p *Project) HasMailConfig() bool {
	return p.SMTPUser != "" && p.SMTPPass != "" && p.EmailTo != ""
}
