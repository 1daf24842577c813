// Package clerk adapts Clerk webhook notifications (svix delivery) into
// canonical identity events.
package clerk

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	identitydomain "github.com/polarishq/polaris/internal/identity/domain"
)

const (
	headerID        = "svix-id"
	headerTimestamp = "svix-timestamp"
	headerSignature = "svix-signature"

	secretPrefix = "whsec_"
)

type Adapter struct {
	signingKey []byte
}

// New builds an adapter from the shared webhook secret. Secrets are
// issued with a whsec_ prefix over a base64 key.
func New(secret string) (*Adapter, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, identitydomain.ErrInvalidSignature
	}
	encoded := strings.TrimPrefix(secret, secretPrefix)
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	return &Adapter{signingKey: key}, nil
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	msgID := strings.TrimSpace(headers.Get(headerID))
	timestamp := strings.TrimSpace(headers.Get(headerTimestamp))
	sigHeader := strings.TrimSpace(headers.Get(headerSignature))
	if msgID == "" || timestamp == "" || sigHeader == "" {
		return identitydomain.ErrMissingHeaders
	}

	signedContent := fmt.Sprintf("%s.%s.%s", msgID, timestamp, string(payload))
	mac := hmac.New(sha256.New, a.signingKey)
	_, _ = mac.Write([]byte(signedContent))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// The header carries space-separated "v1,<base64>" entries; any
	// matching signature passes.
	for _, part := range strings.Fields(sigHeader) {
		keyValue := strings.SplitN(part, ",", 2)
		if len(keyValue) != 2 || keyValue[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(keyValue[1]), []byte(expected)) {
			return nil
		}
	}

	return identitydomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (identitydomain.Event, error) {
	var event clerkEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, identitydomain.ErrInvalidPayload
	}

	switch strings.TrimSpace(event.Type) {
	case "user.created", "user.updated":
		return parseUser(event.Data)
	case "organization.created", "organization.updated":
		return parseOrganization(event.Data)
	case "organizationMembership.created":
		return parseMembership(event.Data)
	default:
		return nil, identitydomain.ErrEventIgnored
	}
}

type clerkEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type clerkUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

type clerkOrganization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type clerkMembership struct {
	Role         string `json:"role"`
	Organization struct {
		ID string `json:"id"`
	} `json:"organization"`
	PublicUserData struct {
		UserID string `json:"user_id"`
	} `json:"public_user_data"`
}

func parseUser(data json.RawMessage) (identitydomain.Event, error) {
	var user clerkUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, identitydomain.ErrInvalidPayload
	}
	if strings.TrimSpace(user.ID) == "" {
		return nil, identitydomain.ErrInvalidEvent
	}

	email := ""
	if len(user.EmailAddresses) > 0 {
		email = strings.TrimSpace(user.EmailAddresses[0].EmailAddress)
	}

	return identitydomain.AccountUpserted{
		ExternalID: user.ID,
		Email:      email,
		FirstName:  strings.TrimSpace(user.FirstName),
		LastName:   strings.TrimSpace(user.LastName),
	}, nil
}

func parseOrganization(data json.RawMessage) (identitydomain.Event, error) {
	var org clerkOrganization
	if err := json.Unmarshal(data, &org); err != nil {
		return nil, identitydomain.ErrInvalidPayload
	}
	if strings.TrimSpace(org.ID) == "" {
		return nil, identitydomain.ErrInvalidEvent
	}

	return identitydomain.OrganizationUpserted{
		ExternalID: org.ID,
		Name:       strings.TrimSpace(org.Name),
		Slug:       strings.TrimSpace(org.Slug),
	}, nil
}

func parseMembership(data json.RawMessage) (identitydomain.Event, error) {
	var membership clerkMembership
	if err := json.Unmarshal(data, &membership); err != nil {
		return nil, identitydomain.ErrInvalidPayload
	}
	if strings.TrimSpace(membership.Organization.ID) == "" ||
		strings.TrimSpace(membership.PublicUserData.UserID) == "" {
		return nil, identitydomain.ErrInvalidEvent
	}

	// Clerk prefixes organization roles with "org:".
	role := strings.TrimPrefix(strings.TrimSpace(membership.Role), "org:")

	return identitydomain.MembershipCreated{
		OrgExternalID:  membership.Organization.ID,
		UserExternalID: membership.PublicUserData.UserID,
		Role:           role,
	}, nil
}
