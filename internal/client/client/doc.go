// Package client contains the client-side building blocks of GophVault.
//
// # Overview
//
// The package provides:
//  1. A transport contract (see the API interface) covering the chunked
//     upload lifecycle, downloads and file listing.
//  2. A REST implementation (see HTTPClient) that attaches the bearer token,
//     bounds every call with a timeout and maps error responses to the
//     sentinel errors of the common package.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite state database and applying embedded goose migrations.
//
// # Error Handling
//
// Responses are mapped so callers can use errors.Is / errors.As:
//   - 401 wraps common.ErrUnauthorized, 404 wraps common.ErrNotFound;
//   - a chunk digest mismatch becomes *common.IntegrityError;
//   - completing an unfinished upload becomes *common.IncompleteUploadError;
//   - completing a finished upload wraps common.ErrSessionState.
//
// The original *netx.StatusError stays in the chain, so netx.Retryable works
// on every returned error.
package client
