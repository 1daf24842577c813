package clerk_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/polarishq/polaris/internal/identity/adapters/clerk"
	identitydomain "github.com/polarishq/polaris/internal/identity/domain"
)

const testSigningKey = "dGVzdC1zaWduaW5nLWtleS0xMjM0NTY3ODkwYWJjZGVm"

func newTestAdapter(t *testing.T) *clerk.Adapter {
	t.Helper()

	adapter, err := clerk.New("whsec_" + testSigningKey)
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter
}

func signedHeaders(t *testing.T, msgID, timestamp string, payload []byte) http.Header {
	t.Helper()

	key, err := base64.StdEncoding.DecodeString(testSigningKey)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(fmt.Sprintf("%s.%s.%s", msgID, timestamp, string(payload))))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	headers := http.Header{}
	headers.Set("svix-id", msgID)
	headers.Set("svix-timestamp", timestamp)
	headers.Set("svix-signature", "v1,"+signature)
	return headers
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)

	headers := signedHeaders(t, "msg_1", "1700000000", payload)
	if err := adapter.Verify(context.Background(), payload, headers); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{}`)

	headers := signedHeaders(t, "msg_1", "1700000000", payload)
	headers.Del("svix-timestamp")

	err := adapter.Verify(context.Background(), payload, headers)
	if !errors.Is(err, identitydomain.ErrMissingHeaders) {
		t.Fatalf("expected ErrMissingHeaders, got %v", err)
	}
}

func TestVerifyRejectsAlteredPayload(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)

	headers := signedHeaders(t, "msg_1", "1700000000", payload)
	altered := []byte(`{"type":"user.created","data":{"id":"user_2"}}`)

	err := adapter.Verify(context.Background(), altered, headers)
	if !errors.Is(err, identitydomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyAcceptsRotatedSignatureList(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{"type":"user.created"}`)

	headers := signedHeaders(t, "msg_1", "1700000000", payload)
	// During secret rotation the header carries the old signature too.
	headers.Set("svix-signature", "v1,bm90LXRoZS1yaWdodC1zaWduYXR1cmU= "+headers.Get("svix-signature"))

	if err := adapter.Verify(context.Background(), payload, headers); err != nil {
		t.Fatalf("verify with rotated signatures: %v", err)
	}
}

func TestParseUserCreated(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{
		"type": "user.created",
		"data": {
			"id": "user_1",
			"first_name": "Alice",
			"last_name": "Reyes",
			"email_addresses": [{"email_address": "alice@example.com"}]
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	account, ok := event.(identitydomain.AccountUpserted)
	if !ok {
		t.Fatalf("expected AccountUpserted, got %T", event)
	}
	if account.ExternalID != "user_1" {
		t.Fatalf("expected external id user_1, got %q", account.ExternalID)
	}
	if account.Email != "alice@example.com" {
		t.Fatalf("expected email alice@example.com, got %q", account.Email)
	}
	if account.FirstName != "Alice" || account.LastName != "Reyes" {
		t.Fatalf("unexpected name %q %q", account.FirstName, account.LastName)
	}
}

func TestParseOrganizationCreated(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{
		"type": "organization.created",
		"data": {"id": "org_1", "name": "Acme", "slug": "acme"}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	org, ok := event.(identitydomain.OrganizationUpserted)
	if !ok {
		t.Fatalf("expected OrganizationUpserted, got %T", event)
	}
	if org.ExternalID != "org_1" || org.Name != "Acme" || org.Slug != "acme" {
		t.Fatalf("unexpected organization %+v", org)
	}
}

func TestParseMembershipCreated(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{
		"type": "organizationMembership.created",
		"data": {
			"role": "org:admin",
			"organization": {"id": "org_1"},
			"public_user_data": {"user_id": "user_1"}
		}
	}`)

	event, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	membership, ok := event.(identitydomain.MembershipCreated)
	if !ok {
		t.Fatalf("expected MembershipCreated, got %T", event)
	}
	if membership.OrgExternalID != "org_1" || membership.UserExternalID != "user_1" {
		t.Fatalf("unexpected membership %+v", membership)
	}
	if membership.Role != "admin" {
		t.Fatalf("expected provider role prefix stripped, got %q", membership.Role)
	}
}

func TestParseIgnoresUnknownKind(t *testing.T) {
	adapter := newTestAdapter(t)
	payload := []byte(`{"type": "session.created", "data": {"id": "sess_1"}}`)

	_, err := adapter.Parse(context.Background(), payload)
	if !errors.Is(err, identitydomain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	adapter := newTestAdapter(t)

	if _, err := adapter.Parse(context.Background(), []byte(`{not json`)); !errors.Is(err, identitydomain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if _, err := adapter.Parse(context.Background(), []byte(`{"type":"user.created","data":{}}`)); !errors.Is(err, identitydomain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent for missing id, got %v", err)
	}
}
