// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config.yaml and QLOO_ environment variables.
// It provides type-safe access to the settings needed by the connection
// layer, the logger and the account service.
package config
