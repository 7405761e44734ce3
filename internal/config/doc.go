// Package config holds the runtime settings of the chainconf binary: where
// the network definitions and secrets live, how the HTTP API is served and
// how chain-ID probes are throttled. Values come from defaults, an optional
// YAML file, CHAINCONF_* environment variables and CLI flags, later sources
// winning. Credentials other than the secrets-file passphrase never pass
// through this package.
package config
