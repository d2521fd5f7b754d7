// Package store persists projects and error logs, sealing credential
// fields at rest.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/errsight/errsight/internal/apikey"
	"github.com/errsight/errsight/internal/models"
	"github.com/errsight/errsight/internal/secrets"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned whenever a lookup fails. Credential lookups
// return it for both an unknown public id and a wrong secret, so the two
// cases are indistinguishable to callers.
var ErrNotFound = errors.New("store: not found")

// Projects wraps project persistence. Every write seals the sensitive
// columns (LLMAPIKey, SMTPPass, APIKey); every read opens them, so
// business logic only ever sees plaintext.
type Projects struct {
	db    *gorm.DB
	codec *secrets.Codec
}

// NewProjects creates a project store over the given connection and codec.
func NewProjects(db *gorm.DB, codec *secrets.Codec) *Projects {
	return &Projects{db: db, codec: codec}
}

// Create inserts a project, issuing an API credential if one is not set
// and sealing all sensitive fields. The returned project keeps the
// plaintext credential so the caller can show it once.
func (s *Projects) Create(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.APIKeyID == "" {
		p.APIKeyID = apikey.NewKeyID(p.Name)
	}
	if p.APIKey == "" {
		key, err := apikey.NewKey()
		if err != nil {
			return fmt.Errorf("store: issue credential: %w", err)
		}
		p.APIKey = key
	}

	row := *p
	if err := s.sealSecrets(&row); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store: create project: %w", err)
	}
	p.CreatedAt = row.CreatedAt
	p.UpdatedAt = row.UpdatedAt
	return nil
}

// Get returns a project by internal id with all sensitive fields opened.
func (s *Projects) Get(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	if err := s.openSecrets(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns all projects for an owner, sensitive fields opened. Pass
// an empty owner to list every project.
func (s *Projects) List(ctx context.Context, ownerID string) ([]models.Project, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}
	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	for i := range projects {
		if err := s.openSecrets(&projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// FindByAPICredentials resolves a (public id, secret) pair to a project.
// The stored secret is never queried directly: all rows sharing the
// public id are fetched, each stored secret is opened, and the candidate
// is compared in the clear. A database index on the secret would let
// lookups distinguish valid secrets from invalid ones; the per-row scan
// avoids that, and public id cardinality is expected to be at most one.
// The match is returned with every sensitive field opened.
func (s *Projects) FindByAPICredentials(ctx context.Context, keyID, key string) (*models.Project, error) {
	var candidates []models.Project
	if err := s.db.WithContext(ctx).Where("api_key_id = ?", keyID).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("store: credential lookup: %w", err)
	}
	for i := range candidates {
		stored, err := s.codec.Open(candidates[i].APIKey)
		if err != nil {
			// A corrupt row must not mask a valid sibling.
			continue
		}
		if stored == key {
			if err := s.openSecrets(&candidates[i]); err != nil {
				return nil, err
			}
			return &candidates[i], nil
		}
	}
	return nil, ErrNotFound
}

// Update saves mutable configuration fields, re-sealing any sensitive
// value that arrives as plaintext. Values already sealed (unchanged
// ciphertext round-tripped through an admin read-modify-write) are kept
// as-is rather than sealed twice.
func (s *Projects) Update(ctx context.Context, p *models.Project) error {
	row := *p
	if err := s.sealSecrets(&row); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"name":         row.Name,
			"llm_provider": row.LLMProvider,
			"llm_api_key":  row.LLMAPIKey,
			"llm_model":    row.LLMModel,
			"smtp_user":    row.SMTPUser,
			"smtp_pass":    row.SMTPPass,
			"email_to":     row.EmailTo,
		}).Error
	if err != nil {
		return fmt.Errorf("store: update project: %w", err)
	}
	return nil
}

// Delete removes a project and, by cascade, its log entries.
func (s *Projects) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Select("Logs").Delete(&models.Project{ID: id})
	if res.Error != nil {
		return fmt.Errorf("store: delete project: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateKey issues a fresh API secret for a project and returns it in
// plaintext. The public id is kept stable.
func (s *Projects) RotateKey(ctx context.Context, id string) (string, error) {
	key, err := apikey.NewKey()
	if err != nil {
		return "", fmt.Errorf("store: issue credential: %w", err)
	}
	sealed, err := s.codec.Seal(key)
	if err != nil {
		return "", fmt.Errorf("store: seal credential: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).
		Update("api_key", sealed)
	if res.Error != nil {
		return "", fmt.Errorf("store: rotate key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", ErrNotFound
	}
	return key, nil
}

// sealSecrets encrypts the sensitive fields in place. Already-sealed
// values pass through untouched.
func (s *Projects) sealSecrets(p *models.Project) error {
	for _, f := range []*string{&p.LLMAPIKey, &p.SMTPPass, &p.APIKey} {
		if *f == "" || s.codec.IsSealed(*f) {
			continue
		}
		sealed, err := s.codec.Seal(*f)
		if err != nil {
			return fmt.Errorf("store: seal secret: %w", err)
		}
		*f = sealed
	}
	return nil
}

// openSecrets decrypts the sensitive fields in place.
func (s *Projects) openSecrets(p *models.Project) error {
	for _, f := range []*string{&p.LLMAPIKey, &p.SMTPPass, &p.APIKey} {
		if *f == "" {
			continue
		}
		opened, err := s.codec.Open(*f)
		if err != nil {
			return fmt.Errorf("store: open secret for project %s: %w", p.ID, err)
		}
		*f = opened
	}
	return nil
}
