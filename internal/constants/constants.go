package constants

import "time"

// Migration runner
const (
	// DefaultMigrationTimeout bounds the whole migration run.
	DefaultMigrationTimeout = 60 * time.Second
	DefaultMigrationsDir    = "./migrations"
	DefaultDriver           = "sqlserver"
	EnvPrefix               = "DOLPHIN"
)

// Database defaults
const (
	DefaultSQLServerPort   = 1433
	DefaultPostgresPort    = 5432
	DefaultMySQLPort       = 3306
	DefaultPostgresSSLMode = "disable"

	// Connection pool settings
	DefaultMaxConnections = 25
	DefaultMaxIdleConns   = 5
	DefaultSQLiteMaxConns = 1 // SQLite allows only one writer

	DefaultMaxConnLifetime = 5 * time.Minute
	DefaultMaxIdleTime     = 1 * time.Minute
)

// API host
const (
	DefaultAPIAddr         = ":8080"
	APIEnvPrefix           = "DOLPHIN_API"
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"

	HealthPath      = "/health"
	MetricsPath     = "/metrics"
	SwaggerJSONPath = "/swagger/v1/swagger.json"
	SwaggerYAMLPath = "/swagger/v1/swagger.yaml"
	APIBasePath     = "/api"

	RequestIDHeader     = "X-Request-ID"
	InternalErrorText   = "An internal server error occurred."
	MaxLoggedBodyBytes  = 4 << 10
	ShutdownGracePeriod = 10 * time.Second
	HealthCheckTimeout  = 5 * time.Second
)
