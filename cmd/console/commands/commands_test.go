package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vault-console/internal/models"
	"github.com/vault-console/internal/printer"
	"github.com/vault-console/internal/types"
)

func strPtr(s string) *string { return &s }

// runConsole executes the root command against a fake vault and returns stdout and stderr
func runConsole(t *testing.T, vault http.Handler, args ...string) (string, string, error) {
	t.Helper()
	srv := httptest.NewServer(vault)
	t.Cleanup(srv.Close)

	t.Setenv("VAULT_URL", srv.URL)
	t.Setenv("VAULT_TOKEN", "tok")
	t.Setenv("AUDIT_ENABLED", "false")
	t.Setenv("EXPORT_POLL_INTERVAL", "10ms")

	var out, errOut bytes.Buffer
	prevOut, prevErr, prevColor := printer.Out, printer.ErrOut, color.NoColor
	printer.Out, printer.ErrOut, color.NoColor = &out, &errOut, true
	t.Cleanup(func() { printer.Out, printer.ErrOut, color.NoColor = prevOut, prevErr, prevColor })

	rootCmd.SetArgs(args)
	err := Execute(context.Background())
	return out.String(), errOut.String(), err
}

func TestRows(t *testing.T) {
	active := activeRow(models.ActiveToken{
		TokenAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Chain:        types.ChainBase,
		Symbol:       "USDC",
	})
	assert.Equal(t, []string{"0x8335...A02913", "Base", "USDC", "USDC", "-"}, active)

	spam := spamRow(models.SpamToken{TokenAddress: "short", Chain: types.ChainSolana, Name: strPtr("Scam")})
	assert.Equal(t, "Scam", spam[3])
	assert.Equal(t, "N/A", spam[4])

	mech := mechanismRow(models.MechanismToken{ID: 7, TokenAddress: "abc", Chain: types.ChainWorldChain, Score: "91.5"})
	assert.Equal(t, []string{"7", "abc", "N/A", "Worldchain", "91.5", "-", "-"}, mech)
}

func TestInteractiveSearch_RendersSettledQuery(t *testing.T) {
	var (
		mu       sync.Mutex
		rendered []string
	)
	err := interactiveSearch(context.Background(), strings.NewReader("a\nal\nalice\n"), 50*time.Millisecond, func(text string) error {
		mu.Lock()
		rendered = append(rendered, text)
		mu.Unlock()
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, rendered)
}

func TestTokensSpamCommand(t *testing.T) {
	vault := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/spam-tokens/unique-spam-list", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[
			{"token_address":"So1anaScamMint111","chain":"solana-mainnet","symbol":"SCAM","is_automated":true},
			{"token_address":"0xdead","chain":"base-mainnet","symbol":"FAKE","is_automated":false}
		]`))
	})

	out, _, err := runConsole(t, vault, "tokens", "spam", "--automated", "true")
	require.NoError(t, err)
	assert.Contains(t, out, "SCAM")
	assert.NotContains(t, out, "FAKE")
	assert.Contains(t, out, "Page 1 of 1 (1 records)")
}

func TestTokensDelete_RequiresConfirmation(t *testing.T) {
	var deletes atomic.Int32
	vault := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletes.Add(1)
			assert.Equal(t, "/spam-tokens/So1anaScamMint111/solana-mainnet", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	out, _, err := runConsole(t, vault, "tokens", "delete", "So1anaScamMint111", "--chain", "solana-mainnet")
	require.NoError(t, err)
	assert.Contains(t, out, "--yes")
	assert.EqualValues(t, 0, deletes.Load())

	out, _, err = runConsole(t, vault, "tokens", "delete", "So1anaScamMint111", "--chain", "solana-mainnet", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Token removed from spam list")
	assert.EqualValues(t, 1, deletes.Load())
}

func TestTokensSave_ReportsBackendMessage(t *testing.T) {
	vault := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Token already in spam list"}`))
	})

	_, errOut, err := runConsole(t, vault, "tokens", "save", "So1anaScamMint111", "--chain", "solana-mainnet")
	require.Error(t, err)
	assert.Equal(t, "Token already in spam list", err.Error())
	assert.Contains(t, errOut, "Token already in spam list")
}

func TestExportHoldingCommand(t *testing.T) {
	var checks atomic.Int32
	var srvURL string
	vault := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/analytics/holding-csv":
			assert.Equal(t, "emails", r.URL.Query().Get("type"))
			_, _ = w.Write([]byte(`{"status":"ok","jobId":"j1"}`))
		case "/analytics/csv-status":
			if checks.Add(1) < 2 {
				_, _ = w.Write([]byte(`{"job":{"status":"pending"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"job":{"status":"complete","fileUrl":"` + srvURL + `/files/holding.csv"}}`))
		case "/files/holding.csv":
			_, _ = w.Write([]byte("email,total\n"))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(vault)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	dest := filepath.Join(t.TempDir(), "holding.csv")
	out, _, err := runConsole(t, srv.Config.Handler, "export", "holding", "--type", "emails", "--from", "2024-01-01", "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, out, "Export job j1 created")
	assert.Contains(t, out, "Saved "+dest)
	assert.EqualValues(t, 2, checks.Load())

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "email,total\n", string(data))
}
