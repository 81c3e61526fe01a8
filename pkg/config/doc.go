// Package config provides application configuration management from environment variables.
//
// # Configuration Structure
//
// Server settings:
//
//	RBAC_HOST="0.0.0.0"
//	RBAC_PORT="8080"
//	RBAC_HEALTH_PORT="9090"
//	RBAC_READ_TIMEOUT="15s"
//	RBAC_WRITE_TIMEOUT="15s"
//	RBAC_SECURE_COOKIES="true"
//
// Identity provider settings:
//
//	RBAC_KEYCLOAK_URL="http://keycloak:8080"
//	RBAC_KEYCLOAK_REALM="master"
//	RBAC_KEYCLOAK_CLIENT_ID="rbac-service"
//	RBAC_KEYCLOAK_CLIENT_SECRET="..."
//
// Rate limiting settings:
//
//	RBAC_RATE_LIMIT_ENABLED="true"
//	RBAC_RATE_LIMIT_RPM="300"
//	RBAC_REDIS_URL="redis://localhost:6379"
//
// Observability settings:
//
//	RBAC_LOG_LEVEL="info"  # debug, info, warn, error
//	RBAC_METRICS_ENABLED="true"
//	RBAC_AUDIT_LOG_DIR=""  # empty disables the audit trail
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
package config
