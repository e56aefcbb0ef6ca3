package domain_test

import (
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/coursepay/internal/domain"
)

func TestNormalizeHost(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"school.example.com", "school.example.com"},
		{"School.Example.COM", "school.example.com"},
		{"https://school.example.com/", "school.example.com"},
		{"http://school.example.com/path?q=1#frag", "school.example.com"},
		{"school.example.com:443", "school.example.com"},
		{"localhost:3000", "localhost"},
		{"  school.example.com.  ", "school.example.com"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := domain.NormalizeHost(tc.in); got != tc.want {
			t.Fatalf("NormalizeHost(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestTenantConfigured(t *testing.T) {
	var tenant domain.Tenant
	if tenant.LMSConfigured() || tenant.WebhookConfigured() {
		t.Fatal("empty tenant must not report configured integrations")
	}

	tenant.LMSBaseURL = "https://lms.example.com"
	if tenant.LMSConfigured() {
		t.Fatal("lms without token must not be configured")
	}
	tenant.LMSToken = "token"
	if !tenant.LMSConfigured() {
		t.Fatal("lms with url and token must be configured")
	}

	tenant.StripeWebhookSecret = "   "
	if tenant.WebhookConfigured() {
		t.Fatal("blank webhook secret must not count as configured")
	}
	tenant.StripeWebhookSecret = "whsec_test"
	if !tenant.WebhookConfigured() {
		t.Fatal("webhook secret must count as configured")
	}
}

func TestTruncateEnrollmentError(t *testing.T) {
	short := "MoodleError: invalid course"
	if got := domain.TruncateEnrollmentError(short); got != short {
		t.Fatalf("short message must pass through, got %q", got)
	}

	long := strings.Repeat("x", domain.EnrollmentErrorLimit+100)
	got := domain.TruncateEnrollmentError(long)
	if len(got) != domain.EnrollmentErrorLimit {
		t.Fatalf("expected truncation to %d chars, got %d", domain.EnrollmentErrorLimit, len(got))
	}
}
