// Package contacts maps a purchase event onto CRM contact properties and
// performs the create-or-update.
package contacts

import (
	"context"
	"errors"
	"strings"

	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/crm"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/payload"
)

// CRM property names written on every synced contact.
const (
	PropEmail          = "email"
	PropOrigin         = "origem_hotmart"
	PropProduct        = "produto_hotmart"
	PropStatus         = "status_hotmart"
	PropLifecycleStage = "lifecyclestage"
	PropOwnerID        = "hubspot_owner_id"

	// OriginValue is the provenance marker identifying this integration.
	OriginValue = "hotmart"
	// LifecycleCustomer is applied regardless of status, refunds and
	// chargebacks included.
	LifecycleCustomer = "customer"
)

var ErrMissingEmail = errors.New("contacts: email is required")

type Upserter interface {
	UpsertContact(ctx context.Context, properties map[string]string) (crm.Contact, error)
}

type OwnerResolver interface {
	Resolve(ctx context.Context) string
}

type Client struct {
	crm    Upserter
	owners OwnerResolver
}

// NewClient wires the CRM and an optional owner resolver (nil disables owner assignment).
func NewClient(upserter Upserter, owners OwnerResolver) *Client {
	return &Client{crm: upserter, owners: owners}
}

func BuildProperties(email, product string, status payload.Status, ownerID string) map[string]string {
	props := map[string]string{
		PropEmail:          email,
		PropOrigin:         OriginValue,
		PropProduct:        product,
		PropStatus:         string(status),
		PropLifecycleStage: LifecycleCustomer,
	}
	if ownerID != "" {
		props[PropOwnerID] = ownerID
	}
	return props
}

// Upsert resolves the owner lazily and creates or updates the contact keyed
// by email. CRM failures are returned to the caller.
func (c *Client) Upsert(ctx context.Context, email, product string, status payload.Status) (crm.Contact, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return crm.Contact{}, ErrMissingEmail
	}
	ownerID := ""
	if c.owners != nil {
		ownerID = c.owners.Resolve(ctx)
	}
	return c.crm.UpsertContact(ctx, BuildProperties(email, product, status, ownerID))
}
