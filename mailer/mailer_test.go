package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tomaszgubala/car-dealer/models"
)

func testLead() *models.Lead {
	phone := "+48 600 700 800"
	msg := "Czy auto jest dostępne od ręki?"
	return &models.Lead{
		ID:      7,
		Type:    models.LeadTypeInquiry,
		Name:    "Jan Kowalski",
		Email:   "jan@example.com",
		Phone:   &phone,
		Message: &msg,
		Vehicle: &models.Vehicle{Make: "BMW", Model: "X3", Year: 2021},
	}
}

func TestSendLeadNotification(t *testing.T) {
	var got sendRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMailerWithBase(srv.URL, "re_test_key")
	if err := m.SendLeadNotification(context.Background(), testLead()); err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotAuth != "Bearer re_test_key" {
		t.Errorf("missing api key header, got %q", gotAuth)
	}
	if got.Subject != "Nowe zapytanie ze strony" {
		t.Errorf("unexpected subject %q", got.Subject)
	}
	for _, want := range []string{"Jan Kowalski", "jan@example.com", "BMW X3 (2021)"} {
		if !strings.Contains(got.HTML, want) {
			t.Errorf("body missing %q:\n%s", want, got.HTML)
		}
	}
}

func TestSendLeadNotification_TestDriveSubject(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	lead := testLead()
	lead.Type = models.LeadTypeTestDrive
	m := NewMailerWithBase(srv.URL, "re_test_key")
	if err := m.SendLeadNotification(context.Background(), lead); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Subject != "Nowa rezerwacja jazdy próbnej" {
		t.Errorf("unexpected subject %q", got.Subject)
	}
}

func TestSendLeadNotification_ApiErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewMailerWithBase(srv.URL, "bad_key")
	err := m.SendLeadNotification(context.Background(), testLead())
	if err == nil || !strings.Contains(err.Error(), "status 401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSendLeadNotification_NoApiKeyIsNoop(t *testing.T) {
	m := NewMailerWithBase("http://127.0.0.1:1", "")
	if err := m.SendLeadNotification(context.Background(), testLead()); err != nil {
		t.Fatalf("disabled mailer must not error: %v", err)
	}
}

func TestLeadBody_EscapesHTML(t *testing.T) {
	lead := testLead()
	lead.Name = `<script>alert("x")</script>`
	body := leadBody(lead)
	if strings.Contains(body, "<script>") {
		t.Error("lead fields must be escaped")
	}
}
