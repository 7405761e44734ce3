// Package resolver validates network and compiler definitions against a
// secret bundle and exposes the result as an immutable ResolvedConfig.
// Loading is all-or-nothing: every failure is reported at once and no
// partially valid configuration is ever returned. Account derivation is
// deterministic and never contacts a node.
package resolver
