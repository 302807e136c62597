// Package shared holds helpers used across packages that belong to no
// single layer. testutil contains the log capture used by tests.
package shared
