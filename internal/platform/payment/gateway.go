package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	cfgpkg "github.com/tradeacademy/commissioner/pkg/config"
	"github.com/tradeacademy/commissioner/pkg/logctx"
)

// ChargeRequest is a single charge attempt against the external gateway.
// Reference deduplicates retries on the gateway side.
type ChargeRequest struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reference string  `json:"reference"`
	UserID    string  `json:"user_id"`
}

// ChargeResult reports the gateway outcome. A declined charge is not an
// error: Success is false and ErrorCode carries the decline reason.
type ChargeResult struct {
	Success    bool   `json:"success"`
	ErrorCode  string `json:"error_code,omitempty"`
	GatewayRef string `json:"gateway_ref,omitempty"`
}

// Gateway is the payment collaborator port. Implementations must bound the
// call; a timeout is surfaced as an error and treated as a failed charge by
// callers.
type Gateway interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
}

var ErrGatewayUnconfigured = errors.New("payment gateway URL is not configured")

// HTTPGateway charges through a JSON-over-HTTP gateway endpoint. Requests
// are authenticated with a short-lived HS256 token.
type HTTPGateway struct {
	cfg    cfgpkg.GatewayConfig
	log    *zap.SugaredLogger
	client *http.Client
}

func NewHTTPGateway(cfg *cfgpkg.Config, log *zap.SugaredLogger) Gateway {
	timeout := cfg.Gateway.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		cfg:    cfg.Gateway,
		log:    log,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) signToken(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss": g.cfg.Issuer,
		"iat": now.Unix(),
		"exp": now.Add(2 * time.Minute).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(g.cfg.Secret))
}

func (g *HTTPGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	if g.cfg.URL == "" {
		return nil, ErrGatewayUnconfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal charge request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	token, err := g.signToken(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to sign gateway token: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		// Includes client timeout; the caller accounts it as a failed charge.
		return nil, fmt.Errorf("gateway charge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway charge returned status %d", resp.StatusCode)
	}

	var result ChargeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode charge result: %w", err)
	}

	logctx.FromCtx(ctx, g.log).Infow("gateway charge completed",
		"reference", req.Reference, "success", result.Success, "error_code", result.ErrorCode)
	return &result, nil
}
