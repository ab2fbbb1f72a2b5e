// Package handlers provides general infrastructure HTTP handlers
// (health, version, jwks etc).
//
// Admin handlers for the condominium registry are also included here as they
// are not part of the certificate API. They exist for development and
// back-office use - in production the registry would be fed by the
// property-management system of record.
package handlers
