package logrepo

const (
	// MaxAdapterCount limits the number of live adapters per repository.
	MaxAdapterCount = 100

	// MaxSanitizeDepth bounds recursive sanitization of nested data.
	// Values nested deeper are replaced with MaxDepthPlaceholder.
	MaxSanitizeDepth = 32

	// DestroyConcurrency caps how many adapters tear down at once.
	DestroyConcurrency = 8
)

// Placeholders written by the default sanitizer.
const (
	RedactedPlaceholder       = "[REDACTED]"
	CardNumberPlaceholder     = "[CARD_NUMBER]"
	CircularPlaceholder       = "[CIRCULAR]"
	MaxDepthPlaceholder       = "[MAX_DEPTH]"
	SanitizeFailedPlaceholder = "[SANITIZE_FAILED]"
	MaskPlaceholder           = "***"
)

// FormattedOutputKey is the metadata slot carrying pre-rendered output to adapters.
const FormattedOutputKey = "_formattedOutput"

const (
	DefaultEnvironment = "development"
	EnvPrefix          = "LOGREPO_"
	TimestampLayout    = "2006-01-02T15:04:05.000Z"
)
