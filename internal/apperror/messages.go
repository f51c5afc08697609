package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Market data errors
	CodeRPCConnectionFailed: "Failed to connect to chain RPC endpoint",
	CodeRPCCallFailed:       "Chain RPC call failed",
	CodeStaleSnapshot:       "Pool snapshot is older than the freshness bound",
	CodeMalformedSnapshot:   "Pool snapshot has non-positive reserves",
	CodeChainNotConfigured:  "No RPC client configured for chain",

	// WebSocket errors
	CodeWebSocketConnectionError: "WebSocket connection error",
	CodeWebSocketClosed:          "WebSocket connection closed",
	CodeWebSocketSendError:       "Failed to send WebSocket message",

	// Detection and simulation errors
	CodeInsufficientLiquidity: "Aggregate liquidity below configured floor",
	CodeInsufficientProfit:    "Best net profit below minimum threshold",
	CodeExcessiveSlippage:     "Per-hop price impact exceeds slippage ceiling",
	CodeStaleInput:            "Referenced pool state exceeded freshness bound",
	CodeTooManyHops:           "Route exceeds maximum hop count",
	CodeBrokenCycle:           "Route does not return to the borrowed asset",

	// Execution errors
	CodeProviderUnavailable: "No qualifying flashloan provider",
	CodeSubmissionFailed:    "Transaction submission failed",
	CodeGasPriceTooHigh:     "Chain gas price exceeds configured ceiling",
	CodeExecutionReverted:   "Transaction mined but reverted",
	CodeConfirmTimeout:      "No finality within the confirmation window",
	CodeSignerBusy:          "Signer already has an unconfirmed transaction in flight",
	CodePlanAlreadyFinal:    "Trade plan already reached a terminal attempt",

	// Policy and storage errors
	CodeTrainingFailed:   "Policy training failed",
	CodeInsufficientData: "Not enough attempt history to train",
	CodeStoreUnavailable: "Attempt history store unavailable",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
