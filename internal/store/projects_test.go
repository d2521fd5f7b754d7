package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/errsight/errsight/internal/models"
	"github.com/errsight/errsight/internal/secrets"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setupStores(t *testing.T) (*Projects, *Logs, *gorm.DB, *secrets.Codec) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Project{}, &models.ErrorLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	codec, err := secrets.NewCodec(testKey)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return NewProjects(db, codec), NewLogs(db), db, codec
}

func testProject() *models.Project {
	return &models.Project{
		OwnerID:     "user-1",
		Name:        "checkout",
		LLMProvider: models.ProviderOpenAI,
		LLMAPIKey:   "sk-test-123",
		LLMModel:    "gpt-4o-mini",
		SMTPUser:    "alerts@example.com",
		SMTPPass:    "app-password",
		EmailTo:     "oncall@example.com",
	}
}

func TestCreate_IssuesCredentialAndSealsAtRest(t *testing.T) {
	projects, _, db, codec := setupStores(t)
	p := testProject()
	if err := projects.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" || p.APIKeyID == "" || p.APIKey == "" {
		t.Fatalf("identity not issued: %+v", p)
	}
	if !strings.HasPrefix(p.APIKey, "es_") {
		t.Errorf("api key = %q, want es_ prefix (plaintext returned to caller)", p.APIKey)
	}

	// The row itself must hold ciphertext for every sensitive column and
	// plaintext for everything else.
	var raw models.Project
	if err := db.First(&raw, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("read raw row: %v", err)
	}
	for name, v := range map[string]string{
		"llm_api_key": raw.LLMAPIKey,
		"smtp_pass":   raw.SMTPPass,
		"api_key":     raw.APIKey,
	} {
		if !codec.IsSealed(v) {
			t.Errorf("%s stored as plaintext: %q", name, v)
		}
	}
	if raw.APIKeyID != p.APIKeyID {
		t.Errorf("api_key_id = %q, want plaintext %q", raw.APIKeyID, p.APIKeyID)
	}
	if raw.SMTPUser != "alerts@example.com" {
		t.Errorf("smtp_user = %q, want plaintext", raw.SMTPUser)
	}
}

func TestGet_OpensAllSecrets(t *testing.T) {
	projects, _, _, _ := setupStores(t)
	p := testProject()
	if err := projects.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := projects.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.LLMAPIKey != "sk-test-123" {
		t.Errorf("llm api key = %q, want sk-test-123", got.LLMAPIKey)
	}
	if got.SMTPPass != "app-password" {
		t.Errorf("smtp pass = %q, want app-password", got.SMTPPass)
	}
	if got.APIKey != p.APIKey {
		t.Errorf("api key = %q, want %q", got.APIKey, p.APIKey)
	}
}

func TestGet_NotFound(t *testing.T) {
	projects, _, _, _ := setupStores(t)
	if _, err := projects.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindByAPICredentials_Match(t *testing.T) {
	projects, _, _, _ := setupStores(t)
	p := testProject()
	if err := projects.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := projects.FindByAPICredentials(context.Background(), p.APIKeyID, p.APIKey)
	if err != nil {
		t.Fatalf("FindByAPICredentials: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("resolved project %s, want %s", got.ID, p.ID)
	}
	// All secrets must come back opened, not just the matched one.
	if got.LLMAPIKey != "sk-test-123" || got.SMTPPass != "app-password" {
		t.Errorf("secrets not opened: %+v", got)
	}
}

func TestFindByAPICredentials_UniformNotFound(t *testing.T) {
	projects, _, _, _ := setupStores(t)
	p := testProject()
	if err := projects.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Wrong secret on a known public id, and an unknown public id, must be
	// observably identical.
	_, err1 := projects.FindByAPICredentials(context.Background(), p.APIKeyID, "wrong")
	_, err2 := projects.FindByAPICredentials(context.Background(), "missing", "x")
	if !errors.Is(err1, ErrNotFound) {
		t.Errorf("wrong secret: err = %v, want ErrNotFound", err1)
	}
	if !errors.Is(err2, ErrNotFound) {
		t.Errorf("unknown id: err = %v, want ErrNotFound", err2)
	}
	if err1.Error() != err2.Error() {
		t.Errorf("errors differ: %q vs %q", err1, err2)
	}
}

func TestFindByAPICredentials_DuplicatePublicID(t *testing.T) {
	// Uniqueness of the public id is not enforced at the storage layer;
	// the scan must still find the row whose secret matches.
	projects, _, _, _ := setupStores(t)

	a := testProject()
	a.APIKeyID = "es_dup_000001"
	if err := projects.Create(context.Background(), a); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b := testProject()
	b.Name = "billing"
	b.APIKeyID = "es_dup_000001"
	if err := projects.Create(context.Background(), b); err != nil {
		t.Fatalf("Create b: %v", err)
	}

	got, err := projects.FindByAPICredentials(context.Background(), "es_dup_000001", b.APIKey)
	if err != nil {
		t.Fatalf("FindByAPICredentials: %v", err)
	}
	if got.ID != b.ID {
		t.Errorf("resolved %s, want %s", got.ID, b.ID)
	}
}

func TestUpdate_ReSealsPlaintextKeepsCiphertext(t *testing.T) {
	projects, _, db, codec := setupStores(t)
	p := testProject()
	if err := projects.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Round-trip an admin edit several times: new plaintext gets sealed,
	// already-sealed values are not sealed again.
	for i := 0; i < 3; i++ {
		got, err := projects.Get(context.Background(), p.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		got.Name = "checkout-v2"
		if err := projects.Update(context.Background(), got); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	var raw models.Project
	if err := db.First(&raw, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("read raw row: %v", err)
	}
	if !codec.IsSealed(raw.SMTPPass) {
		t.Fatalf("smtp_pass no longer sealed: %q", raw.SMTPPass)
	}
	opened, err := codec.Open(raw.SMTPPass)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened != "app-password" {
		t.Errorf("smtp_pass corrupted across save cycles: %q", opened)
	}
}

func TestLegacyPlaintextRow(t *testing.T) {
	// Rows written before encryption was introduced hold plaintext
	// secrets. Reads and credential checks must keep working against them.
	projects, _, db, _ := setupStores(t)
	legacy := models.Project{
		ID:        "legacy-1",
		Name:      "legacy",
		APIKeyID:  "es_legacy_000001",
		APIKey:    "es_plaintextkey123",
		SMTPUser:  "alerts@example.com",
		SMTPPass:  "plain-password",
		EmailTo:   "oncall@example.com",
	}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}

	got, err := projects.FindByAPICredentials(context.Background(), "es_legacy_000001", "es_plaintextkey123")
	if err != nil {
		t.Fatalf("FindByAPICredentials: %v", err)
	}
	if got.SMTPPass != "plain-password" {
		t.Errorf("smtp pass = %q, want legacy plaintext", got.SMTPPass)
	}
}

func TestRotateKey(t *testing.T) {
	projects, _, _, _ := setupStores(t)
	p := testProject()
	if err := projects.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldKey := p.APIKey

	newKey, err := projects.RotateKey(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	if newKey == oldKey {
		t.Error("rotated key equals old key")
	}

	if _, err := projects.FindByAPICredentials(context.Background(), p.APIKeyID, oldKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("old key still authenticates: %v", err)
	}
	if _, err := projects.FindByAPICredentials(context.Background(), p.APIKeyID, newKey); err != nil {
		t.Errorf("new key does not authenticate: %v", err)
	}
}

func TestRotateKey_NotFound(t *testing.T) {
	projects, _, _, _ := setupStores(t)
	if _, err := projects.RotateKey(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete_CascadesLogs(t *testing.T) {
	projects, logs, db, _ := setupStores(t)
	p := testProject()
	if err := projects.Create(context.Background(), p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	entry := &models.ErrorLog{ProjectID: p.ID, Error: "boom", Resolution: "{}"}
	if err := logs.Create(context.Background(), entry); err != nil {
		t.Fatalf("create log: %v", err)
	}

	if err := projects.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var count int64
	db.Model(&models.ErrorLog{}).Where("project_id = ?", p.ID).Count(&count)
	if count != 0 {
		t.Errorf("%d log entries survived project deletion", count)
	}
	if err := projects.Delete(context.Background(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}
