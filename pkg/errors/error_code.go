package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidInterval      ErrorCode = 103
	ErrCodeEmptyUniverse        ErrorCode = 104
	ErrCodeInvalidSymbol        ErrorCode = 105

	// Storage errors (200-299)
	ErrCodeStorageUnavailable ErrorCode = 200
	ErrCodeStorageWriteFailed ErrorCode = 201
	ErrCodeArtifactExists     ErrorCode = 202
	ErrCodeArtifactMalformed  ErrorCode = 203
	ErrCodeArtifactReadFailed ErrorCode = 204
	ErrCodeReportWriteFailed  ErrorCode = 205
	ErrCodeIncompatibleFormat ErrorCode = 206

	// Quality errors (300-399)
	ErrCodeValidationFailed ErrorCode = 300

	// Run errors (600-699)
	ErrCodeRunCancelled  ErrorCode = 600
	ErrCodeRunInProgress ErrorCode = 601

	// Provider errors (700-799)
	ErrCodeProviderUnavailable ErrorCode = 700
	ErrCodeEmptyResult         ErrorCode = 701
	ErrCodeProviderParseFailed ErrorCode = 702
	ErrCodeUnsupportedInterval ErrorCode = 703
	ErrCodeInvalidProvider     ErrorCode = 704
)
