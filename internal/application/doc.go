// Package application provides application initialization and dependency wiring.
// It assembles the secret store, loads and resolves the network definitions,
// and builds the verifier, handlers, routers and HTTP server, keeping the
// main package focused on CLI parsing and orchestration.
package application
