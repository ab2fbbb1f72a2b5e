// Package server provides the HTTP server for the CND service.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// The package includes the handlers for
//   - common infrastructure handlers (health, version, jwks etc)
//   - the admin API for managing condominiums, units and debts.
//
// The certificate API handlers live in internal/cnd/handlers;
// middleware is in internal/server/middleware
package server
