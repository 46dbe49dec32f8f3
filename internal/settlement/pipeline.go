package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coinedge/internal/logger"
	"coinedge/internal/monitoring"
)

type Status string

const (
	StatusOK    Status = "OK"
	StatusError Status = "ERROR"
)

const (
	CodeUnreachable = "PLATFORM_UNREACHABLE"
	CodeBadResponse = "PLATFORM_BAD_RESPONSE"
)

// Result is the structured outcome of a platform call. Exhausted retries
// come back as an ERROR result, never a panic or a naked error; callers
// decide what is fatal.
type Result struct {
	Status        Status  `json:"status"`
	TransactionID string  `json:"transaction_id,omitempty"`
	NewBalance    float64 `json:"new_balance,omitempty"`
	Code          string  `json:"code,omitempty"`
	Message       string  `json:"message,omitempty"`
}

func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Err converts a failed result into the error surfaced to the requester.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &PlatformError{Code: r.Code, Message: r.Message}
}

type PlatformError struct {
	Code    string
	Message string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform rejected: %s (%s)", e.Message, e.Code)
}

// Target identifies where and for whom a settlement call lands. The
// callback base comes from the session the platform bootstrapped.
type Target struct {
	BaseURL  string
	PlayerID string
	Currency string
}

// Pipeline executes the four externally-acknowledged operations. Debit is
// the durability boundary: once it succeeds a pending record is opened and
// stays open until credit, refund, or an intentional loss closes it.
type Pipeline struct {
	secret    string
	client    *http.Client
	attempts  int
	baseDelay time.Duration

	records *recordStore
}

func New(secret string, attempts int, baseDelay, timeout time.Duration) *Pipeline {
	if attempts < 1 {
		attempts = 1
	}
	return &Pipeline{
		secret:    secret,
		client:    &http.Client{Timeout: timeout},
		attempts:  attempts,
		baseDelay: baseDelay,
		records:   newRecordStore(),
	}
}

type request struct {
	RequestID    string  `json:"request_id"`
	PlayerID     string  `json:"player_id"`
	Currency     string  `json:"currency"`
	Amount       float64 `json:"amount,omitempty"`
	WinAmount    float64 `json:"win_amount,omitempty"`
	RoundID      string  `json:"round_id,omitempty"`
	OriginalTxID string  `json:"original_tx_id,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	Timestamp    int64   `json:"timestamp"`
}

func (p *Pipeline) Debit(ctx context.Context, t Target, amount float64, roundID string) Result {
	req := request{
		PlayerID: t.PlayerID,
		Currency: t.Currency,
		Amount:   amount,
		RoundID:  roundID,
	}
	res := p.call(ctx, t.BaseURL+"/debit", "debit", &req)

	if res.OK() {
		p.records.open(Record{
			RequestID:     req.RequestID,
			Kind:          "debit",
			PlayerID:      t.PlayerID,
			Amount:        amount,
			RoundID:       roundID,
			TransactionID: res.TransactionID,
			CreatedAt:     time.Now(),
		})
	}
	return res
}

func (p *Pipeline) Credit(ctx context.Context, t Target, betAmount, winAmount float64, roundID, originalTxID string) Result {
	req := request{
		PlayerID:     t.PlayerID,
		Currency:     t.Currency,
		Amount:       betAmount,
		WinAmount:    winAmount,
		RoundID:      roundID,
		OriginalTxID: originalTxID,
	}
	res := p.call(ctx, t.BaseURL+"/credit", "credit", &req)

	if res.OK() {
		p.records.close(originalTxID)
	}
	return res
}

func (p *Pipeline) Refund(ctx context.Context, t Target, amount float64, roundID, originalTxID, reason string) Result {
	req := request{
		PlayerID:     t.PlayerID,
		Currency:     t.Currency,
		Amount:       amount,
		RoundID:      roundID,
		OriginalTxID: originalTxID,
		Reason:       reason,
	}
	res := p.call(ctx, t.BaseURL+"/refund", "refund", &req)

	if res.OK() {
		p.records.close(originalTxID)
	}
	return res
}

func (p *Pipeline) Balance(ctx context.Context, t Target) Result {
	req := request{
		PlayerID: t.PlayerID,
		Currency: t.Currency,
	}
	return p.call(ctx, t.BaseURL+"/balance", "balance", &req)
}

// MarkFinal closes a debit record as an intentional loss. No platform call
// is made; the debit already stands as the terminal state.
func (p *Pipeline) MarkFinal(txID string) {
	p.records.close(txID)
}

func (p *Pipeline) Pending() []Record {
	return p.records.all()
}

// call signs and dispatches one operation. The request id doubles as the
// idempotency key, so retries of a lost response cannot double-settle.
// Transport failures and malformed replies retry with linear backoff; a
// well-formed ERROR reply is the platform's definitive answer and returns
// immediately.
func (p *Pipeline) call(ctx context.Context, url, kind string, req *request) Result {
	req.RequestID = uuid.New().String()
	req.Timestamp = time.Now().Unix()

	body, err := json.Marshal(req)
	if err != nil {
		return Result{Status: StatusError, Code: CodeBadResponse, Message: err.Error()}
	}
	signature := Sign(p.secret, body)

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * p.baseDelay):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
		}

		res, err := p.dispatch(ctx, url, body, signature)
		if err == nil {
			monitoring.Settlements.WithLabelValues(kind, string(res.Status)).Inc()
			if !res.OK() {
				logger.Log.Warn("platform rejected settlement call",
					zap.String("kind", kind),
					zap.String("code", res.Code),
					zap.String("request_id", req.RequestID))
			}
			return res
		}

		lastErr = err
		logger.Log.Warn("settlement call failed",
			zap.String("kind", kind),
			zap.String("request_id", req.RequestID),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	monitoring.Settlements.WithLabelValues(kind, "unreachable").Inc()
	return Result{
		Status:  StatusError,
		Code:    CodeUnreachable,
		Message: fmt.Sprintf("%s failed after %d attempts: %v", kind, p.attempts, lastErr),
	}
}

func (p *Pipeline) dispatch(ctx context.Context, url string, body []byte, signature string) (Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Signature", signature)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("http %d", resp.StatusCode)
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	if res.Status != StatusOK && res.Status != StatusError {
		return Result{}, fmt.Errorf("unknown status %q", res.Status)
	}
	return res, nil
}
