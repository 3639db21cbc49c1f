// Package config provides centralized configuration management for the
// DATRAS client. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for accessing configuration
// values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern DATRAS_* for namespacing:
//
//	DATRAS_SERVER_PORT=8080
//	DATRAS_DATRAS_BASE_URL=https://datras.ices.dk/WebServices/DATRASWebService.asmx
//	DATRAS_WORMS_BASE_URL=https://www.marinespecies.org/aphia.php?p=soap
//	DATRAS_FETCH_DOWNLOAD_LIMIT=5
//	DATRAS_LOGGING_LEVEL=info
//
// # Paths
//
// The Paths type resolves data, exports, and logs directories relative to
// the executable location so binaries behave the same regardless of the
// working directory they are launched from.
package config
