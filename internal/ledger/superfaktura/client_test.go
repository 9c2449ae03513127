package superfaktura_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fakturio/internal/config"
	"fakturio/internal/ledger/superfaktura"
)

func newTestClient(serverURL string) *superfaktura.Client {
	cfg := &config.LedgerConfig{
		BaseURL:     "https://moje.superfaktura.cz",
		Email:       "test@example.com",
		APIKey:      "test-key",
		CompanyID:   "77",
		TimeoutSecs: 5,
	}
	return superfaktura.NewWithEndpoint(cfg, serverURL)
}

func TestEncodeSearchTerm(t *testing.T) {
	// Standard base64 of "2024010025" is "MjAyNDAxMDAyNQ=="; the search
	// dialect swaps the URL-hostile characters.
	assert.Equal(t, "MjAyNDAxMDAyNQ,,", superfaktura.EncodeSearchTerm("2024010025"))
	assert.NotContains(t, superfaktura.EncodeSearchTerm("a+b/c"), "=")
}

func TestHasExpenseWithVariable(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		// Superset match: searching "123" also returns "1234".
		fmt.Fprint(w, `{"error":0,"data":[
			{"Expense":{"id":"1","variable":"1234"}},
			{"Expense":{"id":"2","variable":"123"}}
		]}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	found, err := c.HasExpenseWithVariable(context.Background(), "123")
	require.NoError(t, err)
	assert.True(t, found)

	assert.Contains(t, gotPath, "/expenses/index.json/")
	assert.Contains(t, gotPath, "created_since:01.01.2020")
	assert.Contains(t, gotPath, "created_to:31.12.2030")
	assert.Contains(t, gotPath, "search:"+superfaktura.EncodeSearchTerm("123"))
	assert.Equal(t, "SFAPI email=test@example.com&apikey=test-key&company_id=77", gotAuth)
}

func TestHasExpenseWithVariable_SupersetOnlyIsNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"Expense":{"id":"1","variable":"1234"}}]`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	found, err := c.HasExpenseWithVariable(context.Background(), "123")
	require.NoError(t, err)
	assert.False(t, found, "fuzzy candidates must be re-verified against the exact symbol")
}

func TestHasExpenseWithVariable_EmptySymbol(t *testing.T) {
	c := newTestClient("http://unreachable.invalid")
	found, err := c.HasExpenseWithVariable(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHasExpenseWithVariable_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.HasExpenseWithVariable(context.Background(), "123")
	assert.Error(t, err)
}

func TestGetOrCreateClient_ExistingMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/clients/index.json/search:")
		fmt.Fprint(w, `[{"Client":{"id":42,"name":"Zásilkovna s.r.o.","ico":"28408306"}}]`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	id, err := c.GetOrCreateClient(context.Background(), "Zásilkovna s.r.o.", "28408306")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestGetOrCreateClient_CreatesWhenAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/clients/index.json"):
			fmt.Fprint(w, `[]`)
		case r.URL.Path == "/clients/create":
			assert.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, r.ParseForm())
			var payload struct {
				Client struct {
					Name string `json:"name"`
					ICO  string `json:"ico"`
				} `json:"Client"`
			}
			require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("data")), &payload))
			assert.Equal(t, "New Supplier", payload.Client.Name)
			assert.Equal(t, "11111111", payload.Client.ICO)
			fmt.Fprint(w, `{"error":0,"data":{"Client":{"id":"99"}}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	id, err := c.GetOrCreateClient(context.Background(), "New Supplier", "11111111")
	require.NoError(t, err)
	assert.Equal(t, "99", id)
}

func TestCreateExpense_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/expenses/add", r.URL.Path)
		require.NoError(t, r.ParseForm())
		var payload superfaktura.ExpensePayload
		require.NoError(t, json.Unmarshal([]byte(r.PostForm.Get("data")), &payload))
		assert.Equal(t, "bill", payload.Expense.Type)
		assert.Equal(t, "2024010025", payload.Expense.Variable)
		assert.NotEmpty(t, payload.ExpenseItem)
		fmt.Fprint(w, `{"error":0,"data":{"Expense":{"id":12345}}}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	id, err := c.CreateExpense(context.Background(), sampleCanonical(), "55", "inv.pdf")
	require.NoError(t, err)
	assert.Equal(t, "12345", id)
}

func TestCreateExpense_Rejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":1,"error_message":"Invalid expense data"}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.CreateExpense(context.Background(), sampleCanonical(), "55", "inv.pdf")
	require.Error(t, err)

	var subErr *superfaktura.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "Invalid expense data", subErr.Message)
}
