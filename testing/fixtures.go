package testing

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAccount creates an account with the given role. status may be nil.
func (tf *TestFixtures) CreateTestAccount(role models.Role, status *models.ProfessionalStatus) (*models.Account, error) {
	account := &models.Account{
		UUID:                    uuid.New(),
		Email:                   fmt.Sprintf("%s.%09d@example.com", role, rand.Intn(1000000000)),
		Role:                    role,
		ProfessionalStatus:      status,
		NotificationPreferences: models.DefaultNotificationPreferences(),
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}

	return account, nil
}

// CreatePendingProfessional creates a submitted professional with a profile and its required documents
func (tf *TestFixtures) CreatePendingProfessional(role models.Role, displayName string) (*models.Account, error) {
	account, err := tf.CreateTestAccount(role, utils.ToPtr(models.ProfessionalStatusPending))
	if err != nil {
		return nil, err
	}

	details, _ := json.Marshal(map[string]any{"years_of_experience": 5})
	profile := &models.ProfessionalProfile{
		AccountID:       account.ID,
		Role:            role,
		Status:          models.ProfessionalStatusPending,
		DisplayName:     displayName,
		LicenseNumber:   fmt.Sprintf("LIC-%06d", rand.Intn(1000000)),
		Phone:           "+15555550100",
		ServicesOffered: pq.StringArray{"consultation"},
		Details:         details,
		SubmittedAt:     time.Now().UTC(),
	}
	if err := tf.DB.DB.Create(profile).Error; err != nil {
		return nil, fmt.Errorf("failed to create test profile: %w", err)
	}

	for _, docType := range models.RequiredDocumentTypes(role) {
		if _, err := tf.CreateTestDocument(account.ID, docType, nil); err != nil {
			return nil, err
		}
	}

	return account, nil
}

// CreateTestDocument creates a pending document. expiresAt may be nil.
func (tf *TestFixtures) CreateTestDocument(accountID uint, docType models.DocumentType, expiresAt *time.Time) (*models.VerificationDocument, error) {
	doc := &models.VerificationDocument{
		AccountID:          accountID,
		DocumentType:       docType,
		DocumentURL:        fmt.Sprintf("https://files.example.com/%d/%s.pdf", accountID, docType),
		VerificationStatus: models.DocumentStatusPending,
		ExpiresAt:          expiresAt,
	}

	if err := tf.DB.DB.Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to create test document: %w", err)
	}

	return doc, nil
}
