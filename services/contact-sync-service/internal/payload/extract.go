package payload

// Event is the normalized view of one purchase webhook.
type Event struct {
	Email   string // empty when no candidate path matched
	Status  Status
	Product string
	EventID string // empty for anonymous deliveries
}

// Candidate path tables, most current payload version first.
var (
	EmailPaths = []Path{
		P("data.buyer.email"),
		P("buyer.email"),
		P("data.buyer_email"),
		P("email"),
		P("checkout_data.customer_email"),
		P("purchase.buyer_email"),
	}
	StatusPaths = []Path{
		P("data.purchase.status"),
		P("status"),
		P("purchase_status"),
		P("data.status"),
		P("event"),
		P("transaction.status"),
	}
	ProductPaths = []Path{
		P("data.product.name"),
		P("product.name"),
		P("data.product_name"),
		P("purchase.product.name"),
		P("item.name"),
		P("product_name"),
	}
	EventIDPaths = []Path{
		P("id"),
		P("event_id"),
		P("transaction.id"),
	}
)

// FirstOf returns the first non-empty value among paths, or "".
func (r RawPayload) FirstOf(paths []Path) string {
	for _, p := range paths {
		if v := r.Lookup(p); v != "" {
			return v
		}
	}
	return ""
}

// Extract never fails: missing attributes come back empty and the status
// is always canonical.
func Extract(r RawPayload) Event {
	return Event{
		Email:   r.FirstOf(EmailPaths),
		Status:  NormalizeStatus(r.FirstOf(StatusPaths)),
		Product: r.FirstOf(ProductPaths),
		EventID: r.FirstOf(EventIDPaths),
	}
}
