package verse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FabianB14/InterverseSDK/internal/codec"
	"github.com/FabianB14/InterverseSDK/internal/domain"
	"github.com/FabianB14/InterverseSDK/internal/event"
	"github.com/FabianB14/InterverseSDK/internal/infra"
)

// Dispatcher receives completion events. The dispatch loop implements it;
// tests substitute fakes.
type Dispatcher interface {
	Dispatch(ev event.Event)
}

// apiPrefix is the node's fixed API namespace. Applied exactly once no
// matter how the caller spells the action path.
const apiPrefix = "verse/"

// PendingRequest tracks one in-flight call for diagnostics and to guarantee
// its continuation fires at most once.
type PendingRequest struct {
	Key      string
	Action   string
	IssuedAt time.Time
}

// Client issues requests against the node's HTTP API. Every operation is
// asynchronous: it returns immediately and delivers its result through the
// given continuation on the dispatch loop. Operations never retry and never
// time out beyond the transport-level timeout.
type Client struct {
	cfg        *infra.Config
	httpClient *http.Client
	baseURL    string
	dispatcher Dispatcher
	limiter    *infra.RateLimiter
	breaker    *infra.CircuitBreaker

	mu      sync.Mutex
	pending map[string]*PendingRequest
}

// NewClient builds a request client against cfg.Node.URL.
// The dispatcher must be draining before any operation is issued.
func NewClient(cfg *infra.Config, dispatcher Dispatcher) *Client {
	burst := cfg.Request.MaxBurst
	if burst <= 0 {
		burst = infra.DefaultMaxBurst
	}
	perSecond := cfg.Request.PerSecond
	if perSecond <= 0 {
		perSecond = infra.DefaultPerSecond
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Request.TimeoutSec) * time.Second,
		},
		baseURL:    strings.TrimRight(cfg.Node.URL, "/"),
		dispatcher: dispatcher,
		limiter:    infra.NewRateLimiter(burst, perSecond),
		breaker:    infra.NewCircuitBreaker("verse-api"),
		pending:    make(map[string]*PendingRequest),
	}
}

// EndpointPath joins the API namespace onto an action path. Idempotent:
// paths already carrying the prefix pass through unchanged.
func EndpointPath(action string) string {
	action = strings.TrimLeft(action, "/")
	if strings.HasPrefix(action, apiPrefix) {
		return action
	}
	return apiPrefix + action
}

// PendingCount reports in-flight requests. Diagnostics only.
func (c *Client) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// CreateWallet requests a new wallet bound to the configured game.
func (c *Client) CreateWallet(ctx context.Context, done func(domain.Wallet, error)) {
	c.issue(ctx, http.MethodPost, "wallet/create",
		createWalletRequest{GameID: c.cfg.Node.GameID},
		func(data []byte, err error) {
			if err != nil {
				done(domain.Wallet{}, err)
				return
			}
			var w wireWallet
			if err := json.Unmarshal(data, &w); err != nil {
				done(domain.Wallet{}, fmt.Errorf("%w: wallet: %v", ErrMalformedPayload, err))
				return
			}
			done(w.domain(), nil)
		})
}

// GetBalance fetches the current balance of one wallet.
func (c *Client) GetBalance(ctx context.Context, address string, done func(BalanceResult, error)) {
	if address == "" {
		c.failEarly("get_balance", func(err error) { done(BalanceResult{}, err) },
			fmt.Errorf("%w: address must not be empty", ErrInvalidArgument))
		return
	}
	c.issue(ctx, http.MethodGet, "wallet/"+url.PathEscape(address)+"/balance", nil,
		func(data []byte, err error) {
			if err != nil {
				done(BalanceResult{}, err)
				return
			}
			var res BalanceResult
			if err := json.Unmarshal(data, &res); err != nil {
				done(BalanceResult{}, fmt.Errorf("%w: balance: %v", ErrMalformedPayload, err))
				return
			}
			if res.Address == "" {
				res.Address = address
			}
			done(res, nil)
		})
}

// MintAsset creates a new asset for ownerAddress. The property block must
// carry a model identifier; custom holds free-form server-side metadata.
func (c *Client) MintAsset(ctx context.Context, ownerAddress string, props domain.AssetProperties, custom map[string]string, done func(domain.Asset, error)) {
	fail := func(err error) { done(domain.Asset{}, err) }
	if ownerAddress == "" {
		c.failEarly("mint_asset", fail, fmt.Errorf("%w: owner address must not be empty", ErrInvalidArgument))
		return
	}
	if !props.IsValid() {
		c.failEarly("mint_asset", fail, fmt.Errorf("%w: properties missing model identifier", ErrInvalidArgument))
		return
	}
	c.issue(ctx, http.MethodPost, "assets/mint",
		mintRequest{
			Owner:            ownerAddress,
			GameID:           c.cfg.Node.GameID,
			AssetType:        props.Category.String(),
			Properties:       codec.EncodeProperties(props),
			CustomProperties: custom,
		},
		func(data []byte, err error) {
			if err != nil {
				fail(err)
				return
			}
			asset, err := codec.DecodeAsset(data)
			if err != nil {
				fail(err)
				return
			}
			done(asset, nil)
		})
}

// TransferAsset moves an asset between wallets.
func (c *Client) TransferAsset(ctx context.Context, assetID, fromAddress, toAddress string, done func(TransferResult, error)) {
	fail := func(err error) { done(TransferResult{}, err) }
	switch {
	case assetID == "":
		c.failEarly("transfer_asset", fail, fmt.Errorf("%w: asset id must not be empty", ErrInvalidArgument))
		return
	case fromAddress == "":
		c.failEarly("transfer_asset", fail, fmt.Errorf("%w: from address must not be empty", ErrInvalidArgument))
		return
	case toAddress == "":
		c.failEarly("transfer_asset", fail, fmt.Errorf("%w: to address must not be empty", ErrInvalidArgument))
		return
	}
	c.issue(ctx, http.MethodPost, "assets/transfer",
		transferRequest{AssetID: assetID, FromAddress: fromAddress, ToAddress: toAddress},
		func(data []byte, err error) {
			if err != nil {
				fail(err)
				return
			}
			var res TransferResult
			if err := json.Unmarshal(data, &res); err != nil {
				fail(fmt.Errorf("%w: transfer: %v", ErrMalformedPayload, err))
				return
			}
			done(res, nil)
		})
}

// GetAsset fetches one asset by id.
func (c *Client) GetAsset(ctx context.Context, assetID string, done func(domain.Asset, error)) {
	if assetID == "" {
		c.failEarly("get_asset", func(err error) { done(domain.Asset{}, err) },
			fmt.Errorf("%w: asset id must not be empty", ErrInvalidArgument))
		return
	}
	c.issue(ctx, http.MethodGet, "assets/"+url.PathEscape(assetID), nil,
		func(data []byte, err error) {
			if err != nil {
				done(domain.Asset{}, err)
				return
			}
			asset, err := codec.DecodeAsset(data)
			if err != nil {
				done(domain.Asset{}, err)
				return
			}
			done(asset, nil)
		})
}

// GetPlayerAssets lists the assets owned by one wallet.
func (c *Client) GetPlayerAssets(ctx context.Context, address string, done func([]domain.Asset, error)) {
	if address == "" {
		c.failEarly("get_player_assets", func(err error) { done(nil, err) },
			fmt.Errorf("%w: address must not be empty", ErrInvalidArgument))
		return
	}
	c.issue(ctx, http.MethodGet, "wallet/"+url.PathEscape(address)+"/assets", nil,
		func(data []byte, err error) {
			if err != nil {
				done(nil, err)
				return
			}
			var raw []json.RawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				// Some node builds wrap the list.
				var wrapped struct {
					Assets []json.RawMessage `json:"assets"`
				}
				if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
					done(nil, fmt.Errorf("%w: asset list: %v", ErrMalformedPayload, err))
					return
				}
				raw = wrapped.Assets
			}
			assets := make([]domain.Asset, 0, len(raw))
			for _, r := range raw {
				asset, err := codec.DecodeAsset(r)
				if err != nil {
					done(nil, err)
					return
				}
				assets = append(assets, asset)
			}
			done(assets, nil)
		})
}

// GetTransactionHistory lists the transactions touching one wallet.
func (c *Client) GetTransactionHistory(ctx context.Context, address string, done func([]domain.Transaction, error)) {
	if address == "" {
		c.failEarly("get_transaction_history", func(err error) { done(nil, err) },
			fmt.Errorf("%w: address must not be empty", ErrInvalidArgument))
		return
	}
	c.issue(ctx, http.MethodGet, "transactions/"+url.PathEscape(address), nil,
		func(data []byte, err error) {
			if err != nil {
				done(nil, err)
				return
			}
			var wire []wireTransaction
			if err := json.Unmarshal(data, &wire); err != nil {
				var wrapped struct {
					Transactions []wireTransaction `json:"transactions"`
				}
				if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
					done(nil, fmt.Errorf("%w: transaction list: %v", ErrMalformedPayload, err))
					return
				}
				wire = wrapped.Transactions
			}
			txs := make([]domain.Transaction, 0, len(wire))
			for _, t := range wire {
				txs = append(txs, t.domain())
			}
			done(txs, nil)
		})
}

// VerifyGame checks that the configured game id is registered on the node.
func (c *Client) VerifyGame(ctx context.Context, done func(GameInfo, error)) {
	c.issue(ctx, http.MethodPost, "games/verify",
		verifyGameRequest{GameID: c.cfg.Node.GameID},
		func(data []byte, err error) {
			if err != nil {
				done(GameInfo{}, err)
				return
			}
			var info GameInfo
			if err := json.Unmarshal(data, &info); err != nil {
				done(GameInfo{}, fmt.Errorf("%w: game info: %v", ErrMalformedPayload, err))
				return
			}
			done(info, nil)
		})
}

// failEarly reports a validation failure through the continuation without
// touching the network. Still delivered via the dispatch loop so callbacks
// always run on the same context.
func (c *Client) failEarly(action string, fail func(error), err error) {
	slog.Debug("request rejected before send", "action", action, "error", err)
	c.post(uuid.NewString(), func() { fail(err) })
}

// issue registers a pending request and runs the HTTP exchange on its own
// goroutine. resolve receives the envelope's data payload or the classified
// error, already on the dispatch loop.
func (c *Client) issue(ctx context.Context, method, action string, payload any, resolve func([]byte, error)) {
	key := uuid.NewString()
	req := &PendingRequest{Key: key, Action: action, IssuedAt: time.Now()}

	c.mu.Lock()
	c.pending[key] = req
	c.mu.Unlock()

	go func() {
		data, err := c.do(ctx, method, action, payload)

		c.mu.Lock()
		_, live := c.pending[key]
		delete(c.pending, key)
		c.mu.Unlock()
		if !live {
			return
		}

		c.post(key, func() { resolve(data, err) })
	}()
}

// post hands a continuation to the dispatch loop.
func (c *Client) post(key string, fn func()) {
	c.dispatcher.Dispatch(event.RequestDoneEvent{
		BaseEvent: event.BaseEvent{Ts: time.Now().UnixMicro()},
		Key:       key,
		Resolve:   fn,
	})
}

// do performs one HTTP exchange and classifies the outcome.
func (c *Client) do(ctx context.Context, method, action string, payload any) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("%w: circuit breaker open for %s", ErrTransportError, action)
	}
	c.limiter.Wait()

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", ErrInvalidArgument, err)
		}
		body = bytes.NewReader(buf)
	}

	reqURL := c.baseURL + "/" + EndpointPath(action)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportError, err)
	}
	req.Header.Set("X-API-Key", c.cfg.Node.APIKey)
	req.Header.Set("User-Agent", infra.SDKUserAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransportError, method, action, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("%w: read response: %v", ErrTransportError, err)
	}

	slog.Debug("request complete",
		"action", action, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode >= 500 {
			c.breaker.RecordFailure()
		}
		return nil, &RemoteError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	c.breaker.RecordSuccess()

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: envelope: %v", ErrMalformedPayload, err)
	}
	if !env.Success {
		return nil, &RemoteError{Status: resp.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}
