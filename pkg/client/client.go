package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arjunmehta/captchapay/pkg/domain"
)

// Static frontend assets and the root/index documents must never carry the
// bearer credential. Fragments are matched by substring, documents by exact
// path.
var (
	skipAuthFragments = []string{"manifest.json", "favicon", "logo"}
	skipAuthExact     = []string{"/", "/index.html"}
)

// Client is the CaptchaPay API client. All outbound traffic goes through it:
// it attaches the bearer credential, tags requests for log correlation, and
// applies the global 401 policy.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger

	mu       sync.RWMutex
	token    string
	unauthed func() // invoked once per 401 response
}

// New creates a new API client. The token may be empty for the auth endpoints.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		log:     zerolog.Nop(),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetLogger routes request logs to the given logger.
func (c *Client) SetLogger(log zerolog.Logger) { c.log = log }

// SetToken replaces the bearer credential, e.g. after login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// OnUnauthorized registers the hook run when any call returns HTTP 401.
// The hook owns clearing persisted session state and steering the UI back to
// the login surface; the client only guarantees it fires before the error is
// returned to the call site.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.unauthed = fn
	c.mu.Unlock()
}

// --- Auth ---

// LoginResponse is the payload returned by the login and register endpoints.
type LoginResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/auth/login", body, &out); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &out, nil
}

// Register creates an account and returns the same shape as Login.
func (c *Client) Register(ctx context.Context, name, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.post(ctx, "/auth/register", body, &out); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return &out, nil
}

// Me returns the authenticated user's identity, plan, and lifetime stats.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.getData(ctx, "/auth/me", &u); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &u, nil
}

// --- Plans & payment ---

// ListPlans fetches the plan catalog.
func (c *Client) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	var plans []domain.Plan
	if err := c.getData(ctx, "/plans", &plans); err != nil {
		return nil, fmt.Errorf("client.ListPlans: %w", err)
	}
	return plans, nil
}

// SelectDemoPlan self-activates the free demo plan.
func (c *Client) SelectDemoPlan(ctx context.Context) error {
	if err := c.post(ctx, "/plans/select-demo", nil, nil); err != nil {
		return fmt.Errorf("client.SelectDemoPlan: %w", err)
	}
	return nil
}

// InitializePayment asks the server for a checkout order for the given plan.
func (c *Client) InitializePayment(ctx context.Context, planID string) (*domain.PaymentOrder, error) {
	var order domain.PaymentOrder
	if err := c.postData(ctx, "/plans/payment/initialize", map[string]string{"planId": planID}, &order); err != nil {
		return nil, fmt.Errorf("client.InitializePayment: %w", err)
	}
	return &order, nil
}

// VerifyPayment forwards the checkout completion proof for server-side
// verification and plan activation.
func (c *Client) VerifyPayment(ctx context.Context, proof domain.PaymentProof) error {
	if err := c.post(ctx, "/plans/payment/verify", proof, nil); err != nil {
		return fmt.Errorf("client.VerifyPayment: %w", err)
	}
	return nil
}

// --- Captchas ---

// RandomCaptcha fetches the next challenge for the session.
func (c *Client) RandomCaptcha(ctx context.Context) (*domain.Captcha, error) {
	var challenge domain.Captcha
	if err := c.getData(ctx, "/captchas/random", &challenge); err != nil {
		return nil, fmt.Errorf("client.RandomCaptcha: %w", err)
	}
	return &challenge, nil
}

// SubmitCaptcha submits an answer for the identified challenge. The result
// carries correctness, the amount earned (zero when wrong), and the new
// wallet balance.
func (c *Client) SubmitCaptcha(ctx context.Context, captchaID, answer string) (*domain.SubmitResult, error) {
	var res domain.SubmitResult
	body := map[string]string{"captchaId": captchaID, "answer": answer}
	if err := c.post(ctx, "/captchas/submit", body, &res); err != nil {
		return nil, fmt.Errorf("client.SubmitCaptcha: %w", err)
	}
	return &res, nil
}

// --- Wallet & withdrawals ---

// Wallet returns the balance plus lifetime earned/withdrawn totals.
func (c *Client) Wallet(ctx context.Context) (*domain.Wallet, error) {
	var w domain.Wallet
	if err := c.getData(ctx, "/wallet", &w); err != nil {
		return nil, fmt.Errorf("client.Wallet: %w", err)
	}
	return &w, nil
}

// WalletBalance returns just the current balance.
func (c *Client) WalletBalance(ctx context.Context) (float64, error) {
	var out struct {
		Balance float64 `json:"balance"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/wallet/balance", nil, &out); err != nil {
		return 0, fmt.Errorf("client.WalletBalance: %w", err)
	}
	return out.Balance, nil
}

// Transactions returns one page of the ledger.
func (c *Client) Transactions(ctx context.Context, page, limit int) ([]domain.Transaction, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	// The endpoint has shipped both {transactions: [...]} and {data: [...]}.
	var out struct {
		Transactions []domain.Transaction `json:"transactions"`
		Data         []domain.Transaction `json:"data"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/wallet/transactions?"+params.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("client.Transactions: %w", err)
	}
	if out.Transactions != nil {
		return out.Transactions, nil
	}
	return out.Data, nil
}

// RequestWithdrawal submits a payout request. Client-side validation happens
// in the view; the server revalidates everything.
func (c *Client) RequestWithdrawal(ctx context.Context, amount float64, details domain.BankDetails) error {
	body := struct {
		Amount      float64            `json:"amount"`
		BankDetails domain.BankDetails `json:"bankDetails"`
	}{Amount: amount, BankDetails: details}
	if err := c.post(ctx, "/withdrawal/request", body, nil); err != nil {
		return fmt.Errorf("client.RequestWithdrawal: %w", err)
	}
	return nil
}

// MyWithdrawals returns the caller's withdrawal history.
func (c *Client) MyWithdrawals(ctx context.Context) ([]domain.Withdrawal, error) {
	var ws []domain.Withdrawal
	if err := c.getData(ctx, "/withdrawal/my", &ws); err != nil {
		return nil, fmt.Errorf("client.MyWithdrawals: %w", err)
	}
	return ws, nil
}

// --- Admin ---

// AdminStats returns the platform overview counters.
func (c *Client) AdminStats(ctx context.Context) (*domain.PlatformStats, error) {
	var s domain.PlatformStats
	if err := c.getData(ctx, "/admin/stats", &s); err != nil {
		return nil, fmt.Errorf("client.AdminStats: %w", err)
	}
	return &s, nil
}

// AdminUsers lists all users.
func (c *Client) AdminUsers(ctx context.Context) ([]domain.User, error) {
	var us []domain.User
	if err := c.getData(ctx, "/admin/users", &us); err != nil {
		return nil, fmt.Errorf("client.AdminUsers: %w", err)
	}
	return us, nil
}

// AdminPlans lists all plans including unpublished ones.
func (c *Client) AdminPlans(ctx context.Context) ([]domain.Plan, error) {
	var ps []domain.Plan
	if err := c.getData(ctx, "/admin/plans", &ps); err != nil {
		return nil, fmt.Errorf("client.AdminPlans: %w", err)
	}
	return ps, nil
}

// CreatePlanRequest is the admin payload for creating or updating a plan.
type CreatePlanRequest struct {
	Name               string  `json:"name"`
	Price              float64 `json:"price"`
	ValidityDays       int     `json:"validityDays"`
	CaptchaLimit       int     `json:"captchaLimit"`
	EarningsPerCaptcha float64 `json:"earningsPerCaptcha"`
	Description        string  `json:"description,omitempty"`
}

// AdminCreatePlan creates a plan.
func (c *Client) AdminCreatePlan(ctx context.Context, req CreatePlanRequest) (*domain.Plan, error) {
	var p domain.Plan
	if err := c.postData(ctx, "/admin/plans", req, &p); err != nil {
		return nil, fmt.Errorf("client.AdminCreatePlan: %w", err)
	}
	return &p, nil
}

// AdminUpdatePlan updates a plan by id.
func (c *Client) AdminUpdatePlan(ctx context.Context, id string, req CreatePlanRequest) error {
	if err := c.doRequest(ctx, http.MethodPut, "/admin/plans/"+url.PathEscape(id), req, nil); err != nil {
		return fmt.Errorf("client.AdminUpdatePlan: %w", err)
	}
	return nil
}

// AdminDeletePlan deletes a plan by id.
func (c *Client) AdminDeletePlan(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/admin/plans/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("client.AdminDeletePlan: %w", err)
	}
	return nil
}

// AdminCaptchas lists the captcha inventory.
func (c *Client) AdminCaptchas(ctx context.Context) ([]domain.Captcha, error) {
	var cs []domain.Captcha
	if err := c.getData(ctx, "/admin/captchas", &cs); err != nil {
		return nil, fmt.Errorf("client.AdminCaptchas: %w", err)
	}
	return cs, nil
}

// AdminWithdrawals lists all withdrawal requests for moderation.
func (c *Client) AdminWithdrawals(ctx context.Context) ([]domain.Withdrawal, error) {
	var ws []domain.Withdrawal
	if err := c.getData(ctx, "/admin/withdrawals", &ws); err != nil {
		return nil, fmt.Errorf("client.AdminWithdrawals: %w", err)
	}
	return ws, nil
}

// ApproveWithdrawal approves a pending withdrawal.
func (c *Client) ApproveWithdrawal(ctx context.Context, id string) error {
	if err := c.doRequest(ctx, http.MethodPut, "/admin/withdrawals/"+url.PathEscape(id)+"/approve", nil, nil); err != nil {
		return fmt.Errorf("client.ApproveWithdrawal: %w", err)
	}
	return nil
}

// RejectWithdrawal rejects a pending withdrawal with a reason.
func (c *Client) RejectWithdrawal(ctx context.Context, id, reason string) error {
	body := map[string]string{"reason": reason}
	if err := c.doRequest(ctx, http.MethodPut, "/admin/withdrawals/"+url.PathEscape(id)+"/reject", body, nil); err != nil {
		return fmt.Errorf("client.RejectWithdrawal: %w", err)
	}
	return nil
}

// AdminCaptchaSettings returns the captcha timing setting.
func (c *Client) AdminCaptchaSettings(ctx context.Context) (*domain.CaptchaSettings, error) {
	var s domain.CaptchaSettings
	if err := c.getData(ctx, "/admin/captcha-settings", &s); err != nil {
		return nil, fmt.Errorf("client.AdminCaptchaSettings: %w", err)
	}
	return &s, nil
}

// AdminSetCaptchaSettings updates the captcha timing setting.
func (c *Client) AdminSetCaptchaSettings(ctx context.Context, reloadTime int) error {
	body := map[string]int{"reloadTime": reloadTime}
	if err := c.doRequest(ctx, http.MethodPut, "/admin/captcha-settings", body, nil); err != nil {
		return fmt.Errorf("client.AdminSetCaptchaSettings: %w", err)
	}
	return nil
}

// AdminRecentPurchases returns the most recent plan sales.
func (c *Client) AdminRecentPurchases(ctx context.Context, limit int) ([]domain.Purchase, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	var ps []domain.Purchase
	if err := c.getData(ctx, "/admin/recent-purchases?"+params.Encode(), &ps); err != nil {
		return nil, fmt.Errorf("client.AdminRecentPurchases: %w", err)
	}
	return ps, nil
}

// AdminUsersWithPlans returns a page of users holding an active plan.
func (c *Client) AdminUsersWithPlans(ctx context.Context, page, limit int) ([]domain.User, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	var us []domain.User
	if err := c.getData(ctx, "/admin/users-with-plans?"+params.Encode(), &us); err != nil {
		return nil, fmt.Errorf("client.AdminUsersWithPlans: %w", err)
	}
	return us, nil
}

// AdminPlanStats returns per-plan sales aggregations.
func (c *Client) AdminPlanStats(ctx context.Context) ([]domain.PlanStat, error) {
	var ps []domain.PlanStat
	if err := c.getData(ctx, "/admin/plan-stats", &ps); err != nil {
		return nil, fmt.Errorf("client.AdminPlanStats: %w", err)
	}
	return ps, nil
}

// --- transport ---

// envelope is the server's standard {success, message, data} wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// getData performs a GET and unwraps the envelope's data field into out.
func (c *Client) getData(ctx context.Context, path string, out any) error {
	var env envelope
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &env); err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// postData performs a POST and unwraps the envelope's data field into out.
func (c *Client) postData(ctx context.Context, path string, body, out any) error {
	var env envelope
	if err := c.doRequest(ctx, http.MethodPost, path, body, &env); err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.doRequest(ctx, http.MethodPost, path, body, out)
}

// skipAuth reports whether the bearer credential must be withheld from the
// given request path.
func skipAuth(path string) bool {
	trimmed := path
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	for _, p := range skipAuthExact {
		if trimmed == p {
			return true
		}
	}
	for _, f := range skipAuthFragments {
		if strings.Contains(path, f) {
			return true
		}
	}
	return false
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.New().String()
	req.Header.Set("X-Request-ID", reqID)

	c.mu.RLock()
	token := c.token
	hook := c.unauthed
	c.mu.RUnlock()
	if token != "" && !skipAuth(path) {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Str("method", method).Str("path", path).Str("request_id", reqID).
			Err(err).Msg("request failed")
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.log.Debug().Str("method", method).Str("path", path).Str("request_id", reqID).
		Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("request")

	if resp.StatusCode == http.StatusUnauthorized && hook != nil {
		hook()
	}

	if resp.StatusCode >= 400 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max error body
		if readErr != nil {
			return &HTTPError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to read body: %v", readErr)}
		}
		var apiErr struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil {
			if apiErr.Message != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Message}
			}
			if apiErr.Error != "" {
				return &HTTPError{StatusCode: resp.StatusCode, Message: apiErr.Error}
			}
		}
		return &HTTPError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
