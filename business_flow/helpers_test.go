package businessflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/amirphl/vetverify/app/services"
	"github.com/amirphl/vetverify/config"
	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/repository/memory"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type recordingEmailProvider struct {
	mu   sync.Mutex
	sent []sentEmail
}

func (p *recordingEmailProvider) SendEmail(_ context.Context, email, subject, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentEmail{To: email, Subject: subject, Body: message})
	return nil
}

func (p *recordingEmailProvider) To(email string) []sentEmail {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sentEmail
	for _, e := range p.sent {
		if e.To == email {
			out = append(out, e)
		}
	}
	return out
}

// recordingSink records every message before handing it to the real hub
type recordingSink struct {
	next services.NotificationSink
	mu   sync.Mutex
	msgs []services.NotificationMessage
}

func (s *recordingSink) Notify(ctx context.Context, msg services.NotificationMessage) error {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	return s.next.Notify(ctx, msg)
}

func (s *recordingSink) For(accountID uint) []services.NotificationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []services.NotificationMessage
	for _, m := range s.msgs {
		if m.AccountID == accountID {
			out = append(out, m)
		}
	}
	return out
}

const fakeStoreBaseURL = "https://files.example.com/"

type fakeDocumentStore struct {
	mu      sync.Mutex
	uploads map[string][]byte
	failErr error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{uploads: make(map[string][]byte)}
}

func (s *fakeDocumentStore) Upload(ctx context.Context, accountUUID uuid.UUID, in services.UploadInput, onProgress services.ProgressFunc) (*services.UploadResult, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	total := int64(len(body))
	if onProgress != nil {
		onProgress(services.UploadProgress{Loaded: total / 2, Total: total, Percent: 50})
		onProgress(services.UploadProgress{Loaded: total, Total: total, Percent: 100})
	}
	key := services.ObjectKey(accountUUID, in.FileName, utils.UTCNow())

	s.mu.Lock()
	s.uploads[key] = body
	s.mu.Unlock()

	return &services.UploadResult{
		URL:         fakeStoreBaseURL + key,
		ObjectKey:   key,
		Size:        total,
		Checksum:    fmt.Sprintf("%x", len(body)),
		ContentType: in.ContentType,
	}, nil
}

func (s *fakeDocumentStore) SignedURL(_ context.Context, documentURL string) (string, error) {
	return documentURL + "?signature=test", nil
}

func (s *fakeDocumentStore) Owns(accountUUID uuid.UUID, documentURL string) bool {
	key, ok := strings.CutPrefix(documentURL, fakeStoreBaseURL)
	return ok && services.KeyOwnedBy(accountUUID, key)
}

type testEnv struct {
	store         *memory.Store
	accounts      repository.AccountRepository
	profiles      repository.ProfessionalProfileRepository
	documents     repository.VerificationDocumentRepository
	decisions     repository.ReviewDecisionRepository
	notifications repository.NotificationRepository
	audit         repository.AuditLogRepository
	queue         repository.ReviewQueueRepository

	emitter  *services.NotificationEmitter
	email    *recordingEmailProvider
	sink     *recordingSink
	docStore *fakeDocumentStore
	cfg      config.VerificationConfig

	verification     VerificationFlow
	reviewQueue      ReviewQueueFlow
	notificationFlow NotificationFlow
	documentFlow     DocumentFlow
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	env := &testEnv{
		store:         store,
		accounts:      memory.NewAccountRepository(store),
		profiles:      memory.NewProfessionalProfileRepository(store),
		documents:     memory.NewVerificationDocumentRepository(store),
		decisions:     memory.NewReviewDecisionRepository(store),
		notifications: memory.NewNotificationRepository(store),
		audit:         memory.NewAuditLogRepository(store),
		queue:         memory.NewReviewQueueRepository(store),
		emitter:       services.NewNotificationEmitter(8),
		email:         &recordingEmailProvider{},
		docStore:      newFakeDocumentStore(),
		cfg:           config.DefaultVerificationConfig(),
	}
	env.cfg.AppBaseURL = "https://app.example.com"

	hub := services.NewNotificationHub(env.notifications, env.email, env.emitter)
	env.sink = &recordingSink{next: hub}
	locker := NewKeyedAccountLocker()

	env.verification = NewVerificationFlow(
		env.accounts, env.profiles, env.documents, env.decisions, env.audit,
		memory.NewTxManager(store), env.docStore, locker, env.sink, env.cfg,
	)
	env.reviewQueue = NewReviewQueueFlow(env.queue, env.accounts, env.audit, env.verification, env.cfg)
	env.notificationFlow = NewNotificationFlow(env.accounts, env.notifications, env.audit, env.emitter)
	env.documentFlow = NewDocumentFlow(env.accounts, env.documents, env.audit, env.docStore, locker, env.sink, env.cfg, 0)
	return env
}

func (e *testEnv) newAccount(t *testing.T, email string, role models.Role) *models.Account {
	t.Helper()
	a := &models.Account{Email: email, Role: role}
	require.NoError(t, e.accounts.Save(context.Background(), a))
	return a
}

func (e *testEnv) newAdmin(t *testing.T) *models.Account {
	t.Helper()
	return e.newAccount(t, fmt.Sprintf("admin-%s@example.com", uuid.NewString()[:8]), models.RoleAdmin)
}

func (e *testEnv) reload(t *testing.T, a *models.Account) *models.Account {
	t.Helper()
	got, err := e.accounts.ByID(context.Background(), a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got
}

func (e *testEnv) profileOf(t *testing.T, a *models.Account) *models.ProfessionalProfile {
	t.Helper()
	p, err := e.profiles.ByAccountID(context.Background(), a.ID)
	require.NoError(t, err)
	return p
}

func (e *testEnv) notificationsOf(t *testing.T, a *models.Account) []*models.Notification {
	t.Helper()
	rows, err := e.notifications.ListByUser(context.Background(), a.ID, false, 0, 0)
	require.NoError(t, err)
	return rows
}

func (e *testEnv) decisionsOf(t *testing.T, a *models.Account) []*models.ReviewDecision {
	t.Helper()
	rows, err := e.decisions.ListByAccount(context.Background(), a.ID)
	require.NoError(t, err)
	return rows
}

// submitVet creates a veterinarian account with a pending profile
func (e *testEnv) submitVet(t *testing.T, email, fullName string) *models.Account {
	t.Helper()
	a := e.newAccount(t, email, models.RoleVeterinarian)
	vet := validVet()
	vet.FullName = fullName
	_, err := e.verification.SubmitProfile(context.Background(), a.UUID, ProfileSubmission{
		Profile:   vet,
		Documents: completedDocs(a.UUID, models.RoleVeterinarian),
	}, testMetadata())
	require.NoError(t, err)
	return e.reload(t, a)
}

// submitVendor creates a vendor account with a pending profile
func (e *testEnv) submitVendor(t *testing.T, email, businessName string) *models.Account {
	t.Helper()
	a := e.newAccount(t, email, models.RoleVendor)
	vendor := validVendor()
	vendor.BusinessName = businessName
	_, err := e.verification.SubmitProfile(context.Background(), a.UUID, ProfileSubmission{
		Profile:   vendor,
		Documents: completedDocs(a.UUID, models.RoleVendor),
	}, testMetadata())
	require.NoError(t, err)
	return e.reload(t, a)
}

func (e *testEnv) approve(t *testing.T, admin, a *models.Account) {
	t.Helper()
	_, err := e.verification.RecordDecision(context.Background(), admin.UUID, a.UUID,
		Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
	require.NoError(t, err)
}

func testMetadata() *ClientMetadata {
	return NewClientMetadata("127.0.0.1", "go-test")
}

func validVet() *models.VeterinarianDetails {
	return &models.VeterinarianDetails{
		FullName:        "Dr. Aisha Sharma",
		LicenseNumber:   "VCI-12345",
		Specializations: []string{"Small animals"},
		ExperienceYears: 8,
		Clinics: []models.Clinic{{
			ClinicName:    "Paws Clinic",
			ClinicAddress: "12 MG Road, Bengaluru",
			ClinicPhone:   "9876543210",
		}},
		ConsultationFee: 500,
		ServicesOffered: []string{"Vaccination", "Surgery"},
		LanguagesSpoken: []string{"English", "Hindi"},
	}
}

func validVendor() *models.VendorDetails {
	return &models.VendorDetails{
		BusinessName:    "Happy Tails Pet Store",
		BusinessType:    models.BusinessTypePetShop,
		LicenseNumber:   "BL-99887",
		GSTNumber:       utils.ToPtr("27AAPFU0939F1ZV"),
		BusinessAddress: "45 Park Street, Kolkata",
		BusinessPhone:   "9123456780",
		ServicesOffered: []string{"Food", "Accessories"},
	}
}

// completedDocs returns finished uploads of every required type stored under owner
func completedDocs(owner uuid.UUID, role models.Role) []DocumentUpload {
	var docs []DocumentUpload
	for _, t := range models.RequiredDocumentTypes(role) {
		docs = append(docs, DocumentUpload{
			Type:     t,
			URL:      fmt.Sprintf("%s%s/%s.pdf", fakeStoreBaseURL, owner, t),
			Progress: 100,
		})
	}
	return docs
}

func businessCode(t *testing.T, err error) string {
	t.Helper()
	var be *BusinessError
	require.True(t, errors.As(err, &be), "expected a business error, got %v", err)
	return be.Code
}

func fileOf(name string, body []byte) DocumentFile {
	return DocumentFile{FileName: name, Size: int64(len(body)), Body: bytes.NewReader(body)}
}
