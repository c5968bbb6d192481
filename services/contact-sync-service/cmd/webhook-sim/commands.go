package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/purchasesync/libs/config"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/payload"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "webhook-sim",
		Short:         "Send sample purchase webhooks and inspect field extraction",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSendCmd(), newExtractCmd())
	return root
}

type sendOptions struct {
	baseURL string
	secret  string
	email   string
	product string
	event   string
	eventID string
	form    bool
}

func newSendCmd() *cobra.Command {
	opts := sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "POST a purchase event to the webhook endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.email) == "" {
				return fmt.Errorf("--email is required")
			}
			if opts.eventID == "" {
				opts.eventID = fmt.Sprintf("evt_test_%d", time.Now().UnixNano())
			}
			req, err := buildRequest(opts)
			if err != nil {
				return err
			}
			resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			fmt.Fprintf(cmd.OutOrStdout(), "status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(body)))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.baseURL, "base-url", config.String("BASE_URL", "http://localhost:8080"), "service base url")
	f.StringVar(&opts.secret, "secret", config.String("HOTMART_SECRET", ""), "shared secret sent as X-Hotmart-Secret (form mode: hottok field)")
	f.StringVar(&opts.email, "email", config.String("BUYER_EMAIL", ""), "buyer email")
	f.StringVar(&opts.product, "product", "Sample Course", "product name")
	f.StringVar(&opts.event, "event", "PURCHASE_APPROVED", "event name, e.g. PURCHASE_REFUNDED")
	f.StringVar(&opts.eventID, "id", "", "event id (random when empty)")
	f.BoolVar(&opts.form, "form", false, "send a legacy form-encoded payload instead of JSON")
	return cmd
}

// buildRequest renders either the current JSON payload shape or the legacy
// form-encoded one.
func buildRequest(opts sendOptions) (*http.Request, error) {
	target := strings.TrimRight(opts.baseURL, "/") + "/hotmart"
	status := strings.TrimPrefix(strings.ToUpper(opts.event), "PURCHASE_")

	if opts.form {
		form := url.Values{}
		form.Set("email", opts.email)
		form.Set("product_name", opts.product)
		form.Set("status", strings.ToLower(status))
		form.Set("transaction[id]", opts.eventID)
		if opts.secret != "" {
			form.Set("hottok", opts.secret)
		}
		req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	raw, err := json.Marshal(map[string]any{
		"id":            opts.eventID,
		"creation_date": time.Now().UnixMilli(),
		"event":         opts.event,
		"version":       "2.0.0",
		"data": map[string]any{
			"buyer":    map[string]any{"email": opts.email},
			"product":  map[string]any{"name": opts.product},
			"purchase": map[string]any{"status": status},
		},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.secret != "" {
		req.Header.Set("X-Hotmart-Secret", opts.secret)
	}
	return req, nil
}

func newExtractCmd() *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Print the normalized event for a payload file (stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			raw, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			body, err := payload.Decode(contentType, raw)
			if err != nil {
				return err
			}
			evt := payload.Extract(body)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{
				"email":    evt.Email,
				"status":   string(evt.Status),
				"product":  evt.Product,
				"event_id": evt.EventID,
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "body content type (sniffed when empty)")
	return cmd
}
