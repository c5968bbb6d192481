package webhookauth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/payload"
)

// ErrUnauthorized covers both a missing and a wrong credential.
var ErrUnauthorized = errors.New("unauthorized")

// Source names where a credential was found; used only for logging.
type Source string

type locator struct {
	source Source
	read   func(r *http.Request, body payload.RawPayload) string
}

func header(name string) locator {
	return locator{
		source: Source("header:" + name),
		read: func(r *http.Request, _ payload.RawPayload) string {
			return strings.TrimSpace(r.Header.Get(name))
		},
	}
}

func query(name string) locator {
	return locator{
		source: Source("query:" + name),
		read: func(r *http.Request, _ payload.RawPayload) string {
			return strings.TrimSpace(r.URL.Query().Get(name))
		},
	}
}

func bodyField(name string) locator {
	return locator{
		source: Source("body:" + name),
		read: func(_ *http.Request, body payload.RawPayload) string {
			return body.Lookup(payload.Path{name})
		},
	}
}

// Checked in order; the first non-empty value is the credential.
var locators = []locator{
	header("X-Hotmart-Secret"),
	header("X-Hotmart-Signature"),
	header("X-Hottok"),
	query("secret"),
	query("hottok"),
	bodyField("secret"),
	bodyField("hottok"),
}

// Authenticator checks the shared secret the payment platform sends with
// every webhook.
type Authenticator struct {
	secret string
}

func New(secret string) *Authenticator {
	return &Authenticator{secret: strings.TrimSpace(secret)}
}

// Open reports whether no secret is configured, in which case every request passes.
func (a *Authenticator) Open() bool {
	return a.secret == ""
}

// Credential returns the first non-empty candidate credential and where it came from.
func Credential(r *http.Request, body payload.RawPayload) (string, Source) {
	for _, l := range locators {
		if v := l.read(r, body); v != "" {
			return v, l.source
		}
	}
	return "", ""
}

func (a *Authenticator) Authenticate(r *http.Request, body payload.RawPayload) error {
	if a.Open() {
		return nil
	}
	got, _ := Credential(r, body)
	if got == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.secret)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
