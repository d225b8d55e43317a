package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/crestbank/corebank/internal/domain"
)

// ---- mock implementations ----

type mockAccountService struct {
	openFn func(userID string, accountType domain.AccountType) (*domain.Account, error)
	listFn func(userID string) ([]domain.Account, error)
}

func (m *mockAccountService) Open(ctx context.Context, userID string, accountType domain.AccountType) (*domain.Account, error) {
	if m.openFn != nil {
		return m.openFn(userID, accountType)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAccountService) List(ctx context.Context, userID string) ([]domain.Account, error) {
	if m.listFn != nil {
		return m.listFn(userID)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newAccountTestRouter(service AccountOpener, authUserID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(fakeAuth(authUserID))
	h := NewAccountHandler(service)
	v1 := r.Group("/v1/accounts")
	v1.POST("", h.Open)
	v1.GET("", h.List)
	return r
}

func testAccount(id, userID string) *domain.Account {
	return &domain.Account{
		ID:        id,
		UserID:    userID,
		Number:    "01234567",
		Type:      domain.AccountTypeChecking,
		Status:    domain.AccountStatusActive,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
}

// ---- tests ----

func TestOpenAccount(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		openFn         func(userID string, accountType domain.AccountType) (*domain.Account, error)
		expectedStatus int
	}{
		{
			name: "success - checking account",
			body: map[string]interface{}{"accountType": "CHECKING"},
			openFn: func(userID string, accountType domain.AccountType) (*domain.Account, error) {
				return testAccount("acc-001", userID), nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "success - savings account",
			body: map[string]interface{}{"accountType": "SAVINGS"},
			openFn: func(userID string, accountType domain.AccountType) (*domain.Account, error) {
				return testAccount("acc-002", userID), nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - unknown account type",
			body:           map[string]interface{}{"accountType": "OFFSHORE"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - missing account type",
			body:           map[string]interface{}{},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountService{openFn: tt.openFn}, "usr-001")
			w := doRequest(router, http.MethodPost, "/v1/accounts", tt.body, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestListAccounts(t *testing.T) {
	router := newAccountTestRouter(&mockAccountService{
		listFn: func(userID string) ([]domain.Account, error) {
			return []domain.Account{*testAccount("acc-001", userID)}, nil
		},
	}, "usr-001")

	w := doRequest(router, http.MethodGet, "/v1/accounts", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp ListAccountsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Accounts) != 1 {
		t.Errorf("expected 1 account, got %d", len(resp.Accounts))
	}
}

func TestListAccountsEmpty(t *testing.T) {
	router := newAccountTestRouter(&mockAccountService{
		listFn: func(userID string) ([]domain.Account, error) { return nil, nil },
	}, "usr-001")

	w := doRequest(router, http.MethodGet, "/v1/accounts", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); !json.Valid([]byte(body)) {
		t.Fatalf("invalid json: %s", body)
	}

	var resp ListAccountsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Accounts == nil || len(resp.Accounts) != 0 {
		t.Errorf("expected empty array, got %v", resp.Accounts)
	}
}
