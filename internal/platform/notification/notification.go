// Package notification delivers SMS messages through a provider configured at
// process start and injected into callers. Templates render the patient-facing
// share texts.
package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one outbound SMS with its delivery outcome.
type Message struct {
	ID         string     `json:"id"`
	Recipient  string     `json:"recipient"`
	Body       string     `json:"body"`
	TemplateID string     `json:"template_id,omitempty"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// SMSSender is the interface for sending SMS messages. Recipients are E.164
// numbers.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable message template.
type Template struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

// TemplateEngine manages message templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// TemplateSummaryShare renders the text sent when a doctor shares a summary
// by SMS.
const TemplateSummaryShare = "summary-share"

// NewTemplateEngine creates a TemplateEngine with the built-in templates
// pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:   TemplateSummaryShare,
			Name: "Summary Share",
			Body: "Hello {{patient_name}}, your care team has shared your discharge summary with you. View it here: {{access_url}}",
		},
		{
			ID:   "summary-updated",
			Name: "Summary Updated",
			Body: "Hello {{patient_name}}, your discharge summary was updated. View the latest version here: {{access_url}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are
// left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// HTTP provider
// ---------------------------------------------------------------------------

// ProviderConfig holds the settings for the hosted SMS gateway.
type ProviderConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	FromNumber string
}

// HTTPSMSSender sends messages through a Twilio-compatible REST gateway.
type HTTPSMSSender struct {
	cfg    ProviderConfig
	client *http.Client
}

// NewHTTPSMSSender constructs a sender from provider configuration.
func NewHTTPSMSSender(cfg ProviderConfig) *HTTPSMSSender {
	return &HTTPSMSSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// SendSMS implements SMSSender.
func (s *HTTPSMSSender) SendSMS(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.FromNumber)
	form.Set("Body", body)

	endpoint := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/Accounts/" + s.cfg.AccountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SMS provider returned status %d", resp.StatusCode)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Mock sender (test double)
// ---------------------------------------------------------------------------

// SMSCall records a single call to SendSMS.
type SMSCall struct {
	To   string
	Body string
}

// MockSMSSender is a test double for SMSSender.
type MockSMSSender struct {
	mu         sync.Mutex
	calls      []SMSCall
	ShouldFail bool
	FailError  string
}

// SendSMS records the call and optionally returns an error.
func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SMSCall{To: to, Body: body})
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded SMS calls.
func (m *MockSMSSender) Calls() []SMSCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SMSCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// Manager renders templates, dispatches messages through the injected sender,
// and keeps the delivery outcome for each message id.
type Manager struct {
	sender    SMSSender
	templates *TemplateEngine
	mu        sync.RWMutex
	messages  map[string]*Message
}

// NewManager constructs a Manager around the given sender and templates.
func NewManager(sender SMSSender, tpl *TemplateEngine) *Manager {
	return &Manager{
		sender:    sender,
		templates: tpl,
		messages:  make(map[string]*Message),
	}
}

// Send dispatches an SMS, assigns a message id, and records the result.
// The Message is returned even when delivery fails so callers can surface
// the id and status.
func (m *Manager) Send(ctx context.Context, recipient, body string) (*Message, error) {
	msg := &Message{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Body:      body,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}

	sendErr := m.sender.SendSMS(ctx, recipient, body)
	if sendErr != nil {
		msg.Status = "failed"
		msg.Error = sendErr.Error()
	} else {
		msg.Status = "sent"
		sentAt := time.Now().UTC()
		msg.SentAt = &sentAt
	}

	m.mu.Lock()
	m.messages[msg.ID] = msg
	m.mu.Unlock()

	return msg, sendErr
}

// SendFromTemplate renders a template and sends the resulting message.
func (m *Manager) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Message, error) {
	body, err := m.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	msg, err := m.Send(ctx, recipient, body)
	if msg != nil {
		msg.TemplateID = templateID
	}
	return msg, err
}

// GetMessage retrieves a message by ID.
func (m *Manager) GetMessage(_ context.Context, id string) (*Message, error) {
	m.mu.RLock()
	msg, ok := m.messages[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("message %q not found", id)
	}
	return msg, nil
}

// Stats returns counts of messages grouped by status.
func (m *Manager) Stats(_ context.Context) map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]int)
	for _, msg := range m.messages {
		stats[msg.Status]++
	}
	return stats
}
