// Package constants provides shared constants for the feedmix application.
package constants

// Nutrient defaults offered when a ration omits its targets.
const (
	// DefaultCPMin is the default minimum crude protein percentage
	DefaultCPMin = 16.0

	// DefaultTDNMin is the default minimum total digestible nutrients percentage
	DefaultTDNMin = 70.0

	// DefaultTotalWeightKg is the default batch weight in kilograms
	DefaultTotalWeightKg = 1.0

	// MinSelection is the minimum number of ingredients a user must pick
	MinSelection = 3
)

// Numeric constants
const (
	// WeightTolerance is the tolerance used when comparing solved weights (kg)
	WeightTolerance = 1e-6

	// WeightPrecision is the number of decimals printed for weights
	WeightPrecision = 4

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyName is appended to total cost lines in reports
	CurrencyName = "Rupiah"

	// CurrencySymbol prefixes currency amounts in summaries
	CurrencySymbol = "Rp"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatTXT is the plain-text report format
	OutputFormatTXT = "txt"
)

// Solver methods
const (
	// SolverSimplex is the pure Go simplex backend
	SolverSimplex = "simplex"

	// SolverLPSolve is the lp_solve backend, available with the lpsolve build tag
	SolverLPSolve = "lpsolve"

	// DefaultSolver is used when a configuration does not name a method
	DefaultSolver = SolverSimplex
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultCatalogFile is the default ingredient catalog location
	DefaultCatalogFile = "data/ingredients.csv"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultRateLimit is the default number of requests per second
	DefaultRateLimit = 50

	// DefaultRateLimitBurst is the default burst size for the rate limiter
	DefaultRateLimitBurst = 100
)
