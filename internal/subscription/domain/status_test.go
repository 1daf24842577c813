package domain_test

import (
	"testing"

	"github.com/polarishq/polaris/internal/subscription/domain"
)

func TestMapStatus(t *testing.T) {
	cases := []struct {
		raw      string
		expected domain.Status
	}{
		{"active", domain.StatusActive},
		{" Active ", domain.StatusActive},
		{"past_due", domain.StatusPastDue},
		{"unpaid", domain.StatusPastDue},
		{"trialing", domain.StatusTrialing},
		{"incomplete", domain.StatusTrialing},
		{"paused", domain.StatusPaused},
		{"canceled", domain.StatusCanceled},
		{"cancelled", domain.StatusCanceled},
		{"incomplete_expired", domain.StatusCanceled},
		{"", domain.StatusUnknown},
		{"some_future_status", domain.StatusUnknown},
	}

	for _, tc := range cases {
		if got := domain.MapStatus(tc.raw); got != tc.expected {
			t.Fatalf("MapStatus(%q) = %q, expected %q", tc.raw, got, tc.expected)
		}
	}
}

func TestEntitles(t *testing.T) {
	entitling := []domain.Status{
		domain.StatusActive,
		domain.StatusTrialing,
		domain.StatusPastDue,
		domain.StatusPaused,
	}
	for _, status := range entitling {
		if !(domain.Subscription{Status: status}).Entitles() {
			t.Fatalf("expected status %q to entitle", status)
		}
	}

	for _, status := range []domain.Status{domain.StatusCanceled, domain.StatusUnknown} {
		if (domain.Subscription{Status: status}).Entitles() {
			t.Fatalf("expected status %q not to entitle", status)
		}
	}
}
