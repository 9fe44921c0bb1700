package http

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"swapforge/internal/shared/config"
	apperrors "swapforge/internal/shared/errors"
	exchange "swapforge/internal/usecases"
)

type ExchangeHandler struct {
	exchangeService exchange.ExchangeService
	logger          *zap.Logger
	config          *config.Config
}

// GetRateLimitConfig implements RateLimitable interface
func (h *ExchangeHandler) GetRateLimitConfig() HTTPRateLimitConfig {
	return HTTPRateLimitConfig{
		RequestsPerMinute: h.config.RateLimit.RequestsPerMinute,
	}
}

func NewExchangeHandler(exchangeService exchange.ExchangeService, logger *zap.Logger, config *config.Config) *ExchangeHandler {
	return &ExchangeHandler{
		exchangeService: exchangeService,
		logger:          logger,
		config:          config,
	}
}

// CreateAsset handles the POST /assets endpoint
func (h *ExchangeHandler) CreateAsset(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	var supply *uint256.Int
	if raw := arg(ctx, "supply"); raw != "" {
		parsed, err := parseAmount("supply", raw)
		if err != nil {
			h.handleError(ctx, err)
			return
		}
		supply = parsed
	}

	address, err := h.exchangeService.CreateAsset(ctx, arg(ctx, "symbol"), supply, arg(ctx, "owner"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	h.logger.Info("Asset creation completed", zap.Duration("duration", time.Since(startTime)))
	writeText(ctx, address.Hex())
}

// AssetBalance handles the GET /assets/balance endpoint
func (h *ExchangeHandler) AssetBalance(ctx *fasthttp.RequestCtx) {
	balance, err := h.exchangeService.AssetBalance(ctx, arg(ctx, "asset"), arg(ctx, "holder"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	writeText(ctx, balance.Dec())
}

// CreatePair handles the POST /pairs endpoint
func (h *ExchangeHandler) CreatePair(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	address, err := h.exchangeService.CreatePair(ctx, arg(ctx, "asset_a"), arg(ctx, "asset_b"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	h.logger.Info("Pair creation completed", zap.Duration("duration", time.Since(startTime)))
	writeText(ctx, address.Hex())
}

// PairInfo handles the GET /pairs/info endpoint
func (h *ExchangeHandler) PairInfo(ctx *fasthttp.RequestCtx) {
	info, err := h.exchangeService.PairInfo(ctx, arg(ctx, "asset_a"), arg(ctx, "asset_b"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	writeJSON(ctx, info)
}

// AddLiquidity handles the POST /liquidity/add endpoint
func (h *ExchangeHandler) AddLiquidity(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	amountA, err := parseAmount("amount_a", arg(ctx, "amount_a"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	amountB, err := parseAmount("amount_b", arg(ctx, "amount_b"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	shares, err := h.exchangeService.AddLiquidity(ctx, arg(ctx, "pair"), amountA, amountB, arg(ctx, "provider"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	h.logger.Info("Add liquidity completed", zap.Duration("duration", time.Since(startTime)))
	writeText(ctx, shares.Dec())
}

// RemoveLiquidity handles the POST /liquidity/remove endpoint
func (h *ExchangeHandler) RemoveLiquidity(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	shares, err := parseAmount("shares", arg(ctx, "shares"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	amountA, amountB, err := h.exchangeService.RemoveLiquidity(ctx, arg(ctx, "pair"), shares, arg(ctx, "provider"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	h.logger.Info("Remove liquidity completed", zap.Duration("duration", time.Since(startTime)))
	writeJSON(ctx, map[string]string{
		"amount_a": amountA.Dec(),
		"amount_b": amountB.Dec(),
	})
}

// Swap handles the POST /swap endpoint
func (h *ExchangeHandler) Swap(ctx *fasthttp.RequestCtx) {
	startTime := time.Now()

	amountIn, err := parseAmount("amount_in", arg(ctx, "amount_in"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	amountOut, err := h.exchangeService.SwapExactIn(ctx, arg(ctx, "pair"), arg(ctx, "asset_in"), amountIn, arg(ctx, "recipient"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	h.logger.Info("Swap completed", zap.Duration("duration", time.Since(startTime)))
	writeText(ctx, amountOut.Dec())
}

// QuoteOut handles the GET /quote/out endpoint
func (h *ExchangeHandler) QuoteOut(ctx *fasthttp.RequestCtx) {
	amountIn, err := parseAmount("amount_in", arg(ctx, "amount_in"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	amountOut, err := h.exchangeService.QuoteOut(ctx, arg(ctx, "pair"), arg(ctx, "asset_in"), amountIn)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	writeText(ctx, amountOut.Dec())
}

// QuoteIn handles the GET /quote/in endpoint
func (h *ExchangeHandler) QuoteIn(ctx *fasthttp.RequestCtx) {
	amountOut, err := parseAmount("amount_out", arg(ctx, "amount_out"))
	if err != nil {
		h.handleError(ctx, err)
		return
	}

	amountIn, err := h.exchangeService.QuoteIn(ctx, arg(ctx, "pair"), arg(ctx, "asset_out"), amountOut)
	if err != nil {
		h.handleError(ctx, err)
		return
	}
	writeText(ctx, amountIn.Dec())
}

// SyncPair handles the POST /pairs/sync endpoint
func (h *ExchangeHandler) SyncPair(ctx *fasthttp.RequestCtx) {
	if err := h.exchangeService.Sync(ctx, arg(ctx, "pair")); err != nil {
		h.handleError(ctx, err)
		return
	}
	writeText(ctx, "ok")
}

// SkimPair handles the POST /pairs/skim endpoint
func (h *ExchangeHandler) SkimPair(ctx *fasthttp.RequestCtx) {
	if err := h.exchangeService.Skim(ctx, arg(ctx, "pair"), arg(ctx, "to")); err != nil {
		h.handleError(ctx, err)
		return
	}
	writeText(ctx, "ok")
}

// SetFeeRecipient handles the POST /fee/recipient endpoint
func (h *ExchangeHandler) SetFeeRecipient(ctx *fasthttp.RequestCtx) {
	if err := h.exchangeService.SetFeeRecipient(ctx, arg(ctx, "caller"), arg(ctx, "recipient")); err != nil {
		h.handleError(ctx, err)
		return
	}
	writeText(ctx, "ok")
}

// arg reads a parameter from the query string or, for form posts, the
// body.
func arg(ctx *fasthttp.RequestCtx, name string) string {
	if v := ctx.QueryArgs().Peek(name); len(v) > 0 {
		return string(v)
	}
	return string(ctx.PostArgs().Peek(name))
}

func parseAmount(name, value string) (*uint256.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: %s parameter is required", apperrors.ErrValidation, name)
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a valid number", apperrors.ErrValidation, name)
	}
	return amount, nil
}

func writeText(ctx *fasthttp.RequestCtx, body string) {
	ctx.SetContentType("text/plain")
	ctx.SetBodyString(body)
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(v)
}
