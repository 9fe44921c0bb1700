package http

import (
	"encoding/json"
	"errors"

	"swapforge/internal/amm/factory"
	"swapforge/internal/amm/pair"
	apperrors "swapforge/internal/shared/errors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type ErrorMapping struct {
	HTTPStatus int
	Code       string
	Message    string
	ShouldLog  bool
}

var errorMappings = map[error]ErrorMapping{
	apperrors.ErrValidation: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    "Request validation failed",
		ShouldLog:  false,
	},
	apperrors.ErrInvalidInput: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "INVALID_INPUT",
		Message:    "Invalid input parameters",
		ShouldLog:  false,
	},
	apperrors.ErrBusinessRule: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "BUSINESS_RULE_VIOLATION",
		Message:    "Business rule violation",
		ShouldLog:  false,
	},
	apperrors.ErrNotFound: {
		HTTPStatus: fasthttp.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    "Requested resource not found",
		ShouldLog:  false,
	},
	apperrors.ErrForbidden: {
		HTTPStatus: fasthttp.StatusForbidden,
		Code:       "FORBIDDEN",
		Message:    "Caller is not allowed to perform this operation",
		ShouldLog:  false,
	},

	apperrors.ErrExternalService: {
		HTTPStatus: fasthttp.StatusBadGateway,
		Code:       "EXTERNAL_SERVICE_ERROR",
		Message:    "External service unavailable",
		ShouldLog:  true,
	},
	apperrors.ErrTimeout: {
		HTTPStatus: fasthttp.StatusGatewayTimeout,
		Code:       "TIMEOUT_ERROR",
		Message:    "Request timeout",
		ShouldLog:  true,
	},
	apperrors.ErrInternal: {
		HTTPStatus: fasthttp.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    "Internal server error",
		ShouldLog:  true,
	},

	pair.ErrOverflow: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "RESERVE_OVERFLOW",
		Message:    "Balance exceeds the reserve width",
		ShouldLog:  true,
	},
	pair.ErrReentrancy: {
		HTTPStatus: fasthttp.StatusConflict,
		Code:       "OPERATION_IN_FLIGHT",
		Message:    "Another operation on this pair is in flight",
		ShouldLog:  false,
	},
	pair.ErrForbiddenCaller: {
		HTTPStatus: fasthttp.StatusForbidden,
		Code:       "FORBIDDEN",
		Message:    "Caller is not allowed to perform this operation",
		ShouldLog:  false,
	},
	pair.ErrInsufficientLiquidityMinted: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "INSUFFICIENT_LIQUIDITY_MINTED",
		Message:    "Deposit too small to mint shares",
		ShouldLog:  false,
	},
	pair.ErrInsufficientLiquidityBurned: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "INSUFFICIENT_LIQUIDITY_BURNED",
		Message:    "Shares redeem to nothing",
		ShouldLog:  false,
	},
	pair.ErrInsufficientShares: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "INSUFFICIENT_SHARES",
		Message:    "Share balance too low",
		ShouldLog:  false,
	},
	pair.ErrNoOutputRequested: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "NO_OUTPUT_REQUESTED",
		Message:    "At least one output amount is required",
		ShouldLog:  false,
	},
	pair.ErrInsufficientLiquidity: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "INSUFFICIENT_LIQUIDITY",
		Message:    "Requested output exceeds reserves",
		ShouldLog:  false,
	},
	pair.ErrInvalidRecipient: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "INVALID_RECIPIENT",
		Message:    "Invalid swap recipient",
		ShouldLog:  false,
	},
	pair.ErrNoInputProvided: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "NO_INPUT_PROVIDED",
		Message:    "No input amount was provided",
		ShouldLog:  false,
	},
	pair.ErrInvariantViolation: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "INVARIANT_VIOLATION",
		Message:    "Swap does not satisfy the constant product invariant",
		ShouldLog:  false,
	},
	pair.ErrAssetTransferFailed: {
		HTTPStatus: fasthttp.StatusBadGateway,
		Code:       "ASSET_TRANSFER_FAILED",
		Message:    "Asset transfer failed",
		ShouldLog:  true,
	},

	factory.ErrForbiddenCaller: {
		HTTPStatus: fasthttp.StatusForbidden,
		Code:       "FORBIDDEN",
		Message:    "Caller is not allowed to perform this operation",
		ShouldLog:  false,
	},
	factory.ErrPairExists: {
		HTTPStatus: fasthttp.StatusConflict,
		Code:       "PAIR_EXISTS",
		Message:    "Pair already exists",
		ShouldLog:  false,
	},
	factory.ErrIdenticalAssets: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "IDENTICAL_ASSETS",
		Message:    "Assets cannot be the same",
		ShouldLog:  false,
	},
	factory.ErrZeroAsset: {
		HTTPStatus: fasthttp.StatusBadRequest,
		Code:       "ZERO_ASSET",
		Message:    "Asset address cannot be zero",
		ShouldLog:  false,
	},
}

// resolveMapping walks the wrap chain for a known sentinel. Sentinels
// are disjoint, so map iteration order does not matter.
func resolveMapping(err error) (ErrorMapping, bool) {
	for sentinel, mapping := range errorMappings {
		if errors.Is(err, sentinel) {
			return mapping, true
		}
	}
	return ErrorMapping{}, false
}

func (h *ExchangeHandler) handleError(ctx *fasthttp.RequestCtx, err error) {
	mapping, found := resolveMapping(err)

	if !found {
		mapping = ErrorMapping{
			HTTPStatus: fasthttp.StatusInternalServerError,
			Code:       "UNKNOWN_ERROR",
			Message:    "An unexpected error occurred",
			ShouldLog:  true,
		}
	}

	if mapping.ShouldLog {
		h.logger.Error("Request error",
			zap.Error(err),
			zap.String("path", string(ctx.Path())),
			zap.String("method", string(ctx.Method())),
			zap.String("code", mapping.Code))
	}

	errorResp := ErrorResponse{
		Code:    mapping.Code,
		Message: mapping.Message,
		Details: getErrorDetails(err, mapping.HTTPStatus >= 500),
	}

	ctx.SetContentType("application/json")
	ctx.SetStatusCode(mapping.HTTPStatus)
	json.NewEncoder(ctx).Encode(map[string]ErrorResponse{"error": errorResp})
}

func getErrorDetails(err error, isServerError bool) string {
	if isServerError {
		return ""
	}
	return err.Error()
}
