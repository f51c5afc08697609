package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Market data error codes
const (
	CodeRPCConnectionFailed Code = "RPC_CONNECTION_FAILED"
	CodeRPCCallFailed       Code = "RPC_CALL_FAILED"
	CodeStaleSnapshot       Code = "STALE_SNAPSHOT"
	CodeMalformedSnapshot   Code = "MALFORMED_SNAPSHOT"
	CodeChainNotConfigured  Code = "CHAIN_NOT_CONFIGURED"

	// WebSocket errors
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
)

// Detection and simulation error codes
const (
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInsufficientProfit    Code = "INSUFFICIENT_PROFIT"
	CodeExcessiveSlippage     Code = "EXCESSIVE_SLIPPAGE"
	CodeStaleInput            Code = "STALE_INPUT"
	CodeTooManyHops           Code = "TOO_MANY_HOPS"
	CodeBrokenCycle           Code = "BROKEN_CYCLE"
)

// Execution error codes
const (
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeSubmissionFailed    Code = "SUBMISSION_FAILED"
	CodeGasPriceTooHigh     Code = "GAS_PRICE_TOO_HIGH"
	CodeExecutionReverted   Code = "EXECUTION_REVERTED"
	CodeConfirmTimeout      Code = "CONFIRM_TIMEOUT"
	CodeSignerBusy          Code = "SIGNER_BUSY"
	CodePlanAlreadyFinal    Code = "PLAN_ALREADY_FINAL"
)

// Policy and storage error codes
const (
	CodeTrainingFailed   Code = "TRAINING_FAILED"
	CodeInsufficientData Code = "INSUFFICIENT_DATA"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
