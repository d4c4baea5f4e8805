package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tomaszgubala/car-dealer/config"
	"github.com/tomaszgubala/car-dealer/models"
)

const moduleName = "mailer"

// Mailer sends transactional mail through the Resend HTTP API. With no
// API key configured every send is a logged no-op, so local setups and
// tests work without credentials.
type Mailer struct {
	baseURL string
	apiKey  string
	from    string
	to      string
	client  *http.Client
}

func NewMailer() *Mailer {
	return &Mailer{
		baseURL: "https://api.resend.com",
		apiKey:  os.Getenv("RESEND_API_KEY"),
		from:    getEnvDefault("MAIL_FROM", "salon@example.com"),
		to:      getEnvDefault("MAIL_SALES_TO", "sprzedaz@example.com"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewMailerWithBase exists for tests that point the client at a local server.
func NewMailerWithBase(baseURL, apiKey string) *Mailer {
	m := NewMailer()
	m.baseURL = strings.TrimRight(baseURL, "/")
	m.apiKey = apiKey
	return m
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendLeadNotification mails the sales inbox about a new lead. Errors
// are returned for the caller to log; a lead is stored regardless of
// whether the notification goes out.
func (m *Mailer) SendLeadNotification(ctx context.Context, lead *models.Lead) error {
	if m.apiKey == "" {
		config.GetLogger().WithField("lead_id", lead.ID).Info("mailer disabled, skipping lead notification")
		return nil
	}

	subject := "Nowe zapytanie ze strony"
	if lead.Type == models.LeadTypeTestDrive {
		subject = "Nowa rezerwacja jazdy próbnej"
	}

	payload := sendRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: subject,
		HTML:    leadBody(lead),
	}
	return m.send(ctx, payload)
}

func (m *Mailer) send(ctx context.Context, payload sendRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("resend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func leadBody(lead *models.Lead) string {
	var b strings.Builder
	b.WriteString("<h2>Nowe zgłoszenie</h2>")
	writeRow(&b, "Imię i nazwisko", lead.Name)
	writeRow(&b, "E-mail", lead.Email)
	if lead.Phone != nil {
		writeRow(&b, "Telefon", *lead.Phone)
	}
	if lead.Vehicle != nil {
		writeRow(&b, "Pojazd", fmt.Sprintf("%s %s (%d)", lead.Vehicle.Make, lead.Vehicle.Model, lead.Vehicle.Year))
	}
	if lead.Message != nil && *lead.Message != "" {
		writeRow(&b, "Wiadomość", *lead.Message)
	}
	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<p><strong>%s:</strong> %s</p>", html.EscapeString(label), html.EscapeString(value))
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
