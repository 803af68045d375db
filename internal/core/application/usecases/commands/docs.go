// Package commands contains the workflow operations that modify an order:
// advancing its status, claiming it and recording high-alert double checks.
//
// Every command is built through a validating constructor and executed by a
// handler that calls the store's guarded, atomic workflow functions. Handlers
// never apply an outcome locally; callers re-read the order afterwards.
package commands
