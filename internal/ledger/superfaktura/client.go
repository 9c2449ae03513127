package superfaktura

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fakturio/internal/config"
	"fakturio/internal/domain"
)

// The expense search endpoint only filters by creation date, so the lookup
// window has to span every record the pipeline could ever have created.
const (
	searchWindowSince = "01.01.2020"
	searchWindowTo    = "31.12.2030"
)

// SubmissionError is a ledger-side rejection of an expense submission, as
// opposed to a transport failure.
type SubmissionError struct {
	Message string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("ledger rejected submission: %s", e.Message)
}

// Client talks to the SuperFaktura API. It implements port.Ledger.
type Client struct {
	baseURL   string
	email     string
	apiKey    string
	companyID string
	client    *http.Client
}

// New creates a SuperFaktura ledger client.
func New(cfg *config.LedgerConfig) *Client {
	return newClient(cfg, "")
}

// NewWithEndpoint creates a client pointing at a custom base URL (for testing).
func NewWithEndpoint(cfg *config.LedgerConfig, baseURL string) *Client {
	return newClient(cfg, baseURL)
}

func newClient(cfg *config.LedgerConfig, baseURL string) *Client {
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		email:     cfg.Email,
		apiKey:    cfg.APIKey,
		companyID: cfg.CompanyID,
		client:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) authHeader() string {
	return fmt.Sprintf("SFAPI email=%s&apikey=%s&company_id=%s", c.email, c.apiKey, c.companyID)
}

// searchTermReplacer rewrites standard base64 into the dialect the search
// endpoint expects in path segments: '+' -> '-', '/' -> '_', '=' -> ','.
var searchTermReplacer = strings.NewReplacer("+", "-", "/", "_", "=", ",")

// EncodeSearchTerm encodes a search term for use in an index URL path.
func EncodeSearchTerm(term string) string {
	return searchTermReplacer.Replace(base64.StdEncoding.EncodeToString([]byte(term)))
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling superfaktura API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("superfaktura API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func (c *Client) postForm(ctx context.Context, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	form := url.Values{"data": {string(data)}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling superfaktura API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("superfaktura API error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// HasExpenseWithVariable reports whether an expense with exactly the given
// variable symbol already exists in the ledger. The search endpoint matches
// supersets (searching "123" also returns "1234"), so every returned record
// is re-verified against the exact symbol.
func (c *Client) HasExpenseWithVariable(ctx context.Context, variableSymbol string) (bool, error) {
	if variableSymbol == "" {
		return false, nil
	}
	path := fmt.Sprintf(
		"/expenses/index.json/listinfo:0/created:3/created_since:%s/created_to:%s/search:%s",
		searchWindowSince, searchWindowTo, EncodeSearchTerm(variableSymbol),
	)
	body, err := c.get(ctx, path)
	if err != nil {
		return false, err
	}
	for _, rec := range decodeExpenseList(body) {
		if rec.Variable.String() == variableSymbol || rec.VariableSymbol.String() == variableSymbol {
			return true, nil
		}
	}
	return false, nil
}

// GetOrCreateClient looks up a ledger client by tax id and creates one when
// no match exists. It returns the ledger-side client id.
func (c *Client) GetOrCreateClient(ctx context.Context, name, taxID string) (string, error) {
	if taxID != "" {
		body, err := c.get(ctx, "/clients/index.json/search:"+EncodeSearchTerm(taxID))
		if err != nil {
			return "", err
		}
		for _, rec := range decodeClientList(body) {
			if rec.TaxID == taxID {
				return rec.ID.String(), nil
			}
		}
	}

	payload := map[string]any{
		"Client": map[string]any{
			"name": name,
			"ico":  taxID,
		},
	}
	body, err := c.postForm(ctx, "/clients/create", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		Error        int             `json:"error"`
		ErrorMessage string          `json:"error_message"`
		Data         json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling client create response: %w", err)
	}
	if resp.Error != 0 {
		return "", &SubmissionError{Message: resp.ErrorMessage}
	}
	var data struct {
		Client ClientRecord `json:"Client"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Client.ID == "" {
		return "", fmt.Errorf("client create response carried no id: %s", truncate(string(body), 200))
	}
	return data.Client.ID.String(), nil
}

// CreateExpense submits the invoice as a ledger expense and returns the
// ledger-side expense id.
func (c *Client) CreateExpense(ctx context.Context, inv *domain.CanonicalInvoice, clientID, sourceName string) (string, error) {
	payload := BuildExpensePayload(inv, clientID, sourceName, time.Now())

	body, err := c.postForm(ctx, "/expenses/add", payload)
	if err != nil {
		return "", err
	}

	var resp struct {
		Error        int             `json:"error"`
		Message      string          `json:"message"`
		ErrorMessage string          `json:"error_message"`
		Data         json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling expense create response: %w", err)
	}
	if resp.Error != 0 {
		msg := resp.ErrorMessage
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = truncate(string(body), 200)
		}
		return "", &SubmissionError{Message: msg}
	}
	return expenseIDFromData(resp.Data), nil
}

// expenseIDFromData digs the new expense id out of the create response,
// which nests it under either data.Expense.id or data.expense_id.
func expenseIDFromData(data json.RawMessage) string {
	var nested struct {
		Expense struct {
			ID flexString `json:"id"`
		} `json:"Expense"`
		ExpenseID flexString `json:"expense_id"`
	}
	if err := json.Unmarshal(data, &nested); err == nil {
		if nested.Expense.ID != "" {
			return nested.Expense.ID.String()
		}
		if nested.ExpenseID != "" {
			return nested.ExpenseID.String()
		}
	}
	var scalar flexString
	if err := json.Unmarshal(data, &scalar); err == nil {
		return scalar.String()
	}
	return ""
}
