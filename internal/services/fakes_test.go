package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"school_fees_echo/internal/models"
)

// newTestDB returns a private in-memory database with the schema applied
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

type fixtures struct {
	parent   models.User // has a phone number
	noPhone  models.User
	student  models.Student
	student2 models.Student
}

func seed(t *testing.T, db *gorm.DB) fixtures {
	t.Helper()

	f := fixtures{
		parent: models.User{
			Username:  "ama",
			FirstName: "Ama",
			LastName:  "Mensah",
			Email:     "ama@example.com",
			Role:      models.UserRoleParent,
			ParentProfile: &models.Parent{
				PhoneNumber: "+233201234567",
			},
		},
		noPhone: models.User{
			Username:  "kofi",
			FirstName: "Kofi",
			LastName:  "Boateng",
			Email:     "kofi@example.com",
			Role:      models.UserRoleParent,
		},
		student:  models.Student{StudentID: "SA007", FirstName: "Esi", LastName: "Mensah", CurrentClass: "Basic 4"},
		student2: models.Student{StudentID: "SA010", FirstName: "Yaw", LastName: "Boateng", CurrentClass: "Basic 2"},
	}

	require.NoError(t, db.Create(&f.parent).Error)
	require.NoError(t, db.Create(&f.noPhone).Error)
	require.NoError(t, db.Create(&f.student).Error)
	require.NoError(t, db.Create(&f.student2).Error)
	return f
}

func countPayments(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&n).Error)
	return n
}

// fakeGateway answers from its fields and records what it was asked
type fakeGateway struct {
	mu sync.Mutex

	initRef    string // reference the gateway assigns; empty echoes the request
	initErr    error
	verifyResp *GatewayVerifyResult
	verifyErr  error

	initCalls   []InitializeRequest
	verifyCalls int
}

func (g *fakeGateway) Name() models.PaymentGateway { return "fake" }

func (g *fakeGateway) Initialize(ctx context.Context, req InitializeRequest) (*GatewayInitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.initCalls = append(g.initCalls, req)
	if g.initErr != nil {
		return nil, g.initErr
	}
	ref := g.initRef
	if ref == "" {
		ref = req.Reference
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"status": true,
		"data":   map[string]string{"reference": ref, "authorization_url": "https://checkout.example.com/" + ref},
	})
	return &GatewayInitResult{
		Reference:        ref,
		AuthorizationURL: "https://checkout.example.com/" + ref,
		Raw:              raw,
	}, nil
}

func (g *fakeGateway) Verify(ctx context.Context, reference string) (*GatewayVerifyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	resp := *g.verifyResp
	return &resp, nil
}

func (g *fakeGateway) setVerify(success bool, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	raw, _ := json.Marshal(map[string]interface{}{
		"status": true,
		"data":   map[string]string{"status": status},
	})
	g.verifyResp = &GatewayVerifyResult{Status: status, Success: success, Raw: raw}
	g.verifyErr = nil
}

// recordingNotifier counts receipts per reference
type recordingNotifier struct {
	mu    sync.Mutex
	sent  map[string]int
	payer map[string]string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: map[string]int{}, payer: map[string]string{}}
}

func (n *recordingNotifier) DispatchPaymentReceipt(ctx context.Context, payment *models.Payment, payer *models.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[payment.Reference]++
	n.payer[payment.Reference] = payer.Email
}

func (n *recordingNotifier) count(ref string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[ref]
}

type sentMessage struct {
	to      []string
	subject string
	body    string
}

// fakeSMS and fakeEmail stand in for the transports
type fakeSMS struct {
	mu    sync.Mutex
	sent  []sentMessage
	err   error
	panic bool
}

func (s *fakeSMS) Send(ctx context.Context, message string, recipients []string) error {
	if s.panic {
		panic("sms transport exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{to: recipients, body: message})
	return nil
}

func (s *fakeSMS) messages() []sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentMessage(nil), s.sent...)
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (e *fakeEmail) Send(ctx context.Context, subject, body, from string, to []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, sentMessage{to: to, subject: subject, body: body})
	return nil
}

func (e *fakeEmail) messages() []sentMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sentMessage(nil), e.sent...)
}
