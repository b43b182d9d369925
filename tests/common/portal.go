package common

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bobmcallan/loan-portal/internal/app"
	portallog "github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/config"
	"github.com/bobmcallan/loan-portal/internal/server"
)

// Portal is an in-process portal wired to the storage emulator and a
// scripted analysis backend.
type Portal struct {
	URL     string
	App     *app.App
	Backend *Backend
}

// Backend answers pending once per statement, then an analysis with the
// configured decision. Confirmed refs are recorded.
type Backend struct {
	*httptest.Server
	Decision int

	mu        sync.Mutex
	seen      map[string]bool
	confirmed []string
}

// Confirmed returns the refs the portal submitted as training datapoints.
func (b *Backend) Confirmed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.confirmed...)
}

func newBackend(decision int) *Backend {
	b := &Backend{Decision: decision, seen: map[string]bool{}}
	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get_loan_prediction_endpoint/":
			blob := r.URL.Query().Get("statement_pdf_blob")
			b.mu.Lock()
			first := !b.seen[blob]
			b.seen[blob] = true
			b.mu.Unlock()
			if first {
				w.WriteHeader(http.StatusAccepted)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"statement_analysis": map[string]interface{}{
					"country_code":       "US",
					"bank_name":          "Chase",
					"statement_year":     2023,
					"statement_pdf_blob": blob,
					"monthly_summary": []map[string]interface{}{
						{"total_deposits": 4000, "total_withdrawals": 1200, "average_balance": 2500, "rent_mortgage_payments": 900, "YearMonth": "2023-01-01"},
						{"total_deposits": 4100, "total_withdrawals": 1300, "average_balance": 2700, "rent_mortgage_payments": 900, "YearMonth": "2023-02-01"},
					},
					"for_against":   "Reasons for: - Regular **salary** deposits - Positive balance Reasons against: - Rent is a large share of income",
					"loan_decision": b.Decision,
				},
				"statement_analysis_ref": "ref-" + blob,
			})
		case "/save_training_datapoint_endpoint/":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			b.mu.Lock()
			b.confirmed = append(b.confirmed, body["statement_analysis_ref"])
			b.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	return b
}

// ServiceAccountKey returns a throwaway PEM key for local V4 signing.
func ServiceAccountKey(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der := x509.MarshalPKCS1PrivateKey(key)
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}))
}

// StartPortal runs the portal in dev mode, signing URLs for the emulator.
func StartPortal(t *testing.T, gcs *GCSContainer, decision int) *Portal {
	t.Helper()

	backend := newBackend(decision)
	t.Cleanup(backend.Close)

	cfg := config.NewDefaultConfig()
	cfg.Environment = "dev"
	cfg.Backend.URL = backend.URL
	cfg.Storage.Badger.Path = t.TempDir()
	cfg.Storage.GCS = config.GCSConfig{
		Bucket:      gcs.Bucket(),
		ProjectID:   "loan-portal-test",
		ClientEmail: "portal-test@loan-portal-test.iam.gserviceaccount.com",
		PrivateKey:  ServiceAccountKey(t),
		Hostname:    gcs.Host(),
		Insecure:    true,
	}
	cfg.Prediction = config.PredictionConfig{
		PollInterval: "50ms",
		MaxInterval:  "200ms",
		MaxAttempts:  5,
		MaxWait:      "5s",
		CacheTTL:     "1m",
		CacheEntries: 16,
	}

	application, err := app.New(cfg, portallog.NewSilentLogger())
	if err != nil {
		t.Fatalf("failed to create portal: %v", err)
	}
	t.Cleanup(func() { application.Close() })

	srv := httptest.NewServer(server.New(application).Handler())
	t.Cleanup(srv.Close)

	return &Portal{URL: srv.URL, App: application, Backend: backend}
}
