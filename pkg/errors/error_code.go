package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeInvalidStopLoss      ErrorCode = 101
	ErrCodeInvalidTakeProfit    ErrorCode = 102
	ErrCodeInvalidBrokerCost    ErrorCode = 103
	ErrCodeInvalidPeriod        ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105
	ErrCodeInvalidPipSize       ErrorCode = 106
	ErrCodeInvalidLimitLevel    ErrorCode = 107

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeMalformedBar          ErrorCode = 203
	ErrCodeUnsupportedDataFormat ErrorCode = 204

	// Broker errors (300-399)
	ErrCodeOutOfOrderBar       ErrorCode = 300
	ErrCodeRecordAlreadyFilled ErrorCode = 301
	ErrCodeRecordOutOfRange    ErrorCode = 302
	ErrCodeInvalidTransition   ErrorCode = 303

	// Run errors (400-499)
	ErrCodeRunNoStrategies  ErrorCode = 400
	ErrCodeRunNoDataPaths   ErrorCode = 401
	ErrCodeRunNoResultsDir  ErrorCode = 402
	ErrCodeRunNoDatasource  ErrorCode = 403
	ErrCodeInsufficientData ErrorCode = 404

	// Report errors (500-599)
	ErrCodeReportWriteFailed ErrorCode = 500
)
