// Package oauth2 manages delegated access tokens for Google and RingCentral on
// behalf of application users.
//
// # Overview
//
// A credential is created once by the Handshake when a user completes the
// provider consent screen, and is kept usable from then on by the Refresher.
// Feature code never touches tokens directly: it asks the Executor to run an
// operation for an (owner, provider) pair and receives a Handle that is
// already bound to a valid access token.
//
//	Handshake -> Store (initial write)
//	Executor -> ClientFactory -> Refresher (when expired) -> Store (on refresh)
//	         -> operation(Handle) -> provider API
//
// # Providers
//
// Everything provider specific sits behind the Provider interface: building
// the consent URL, exchanging the authorization code, refreshing, resolving
// the account identity, creating a Handle and recognising an "invalid token"
// response. The Refresher, ClientFactory, Executor and Handshake are written
// once against that interface.
//
// # Refresh rules
//
//   - A credential without a refresh token cannot be refreshed and yields
//     reauth_required.
//   - A known refresh expiry in the past (RingCentral) yields reauth_required
//     without calling the provider.
//   - An access token is treated as expired SafetyMargin (5 minutes) before
//     its recorded expiry; a zero expiry counts as expired.
//   - A valid token is returned as is with no network traffic.
//   - invalid_grant and other 4xx answers from the token endpoint yield
//     reauth_required, except 408 and 429. Those, network failures, 5xx and
//     an open circuit breaker yield transient.
//   - A grant the provider rejected is marked on the row. Marked credentials
//     fail with reauth_required without another token call until the owner
//     reconnects.
//
// # Concurrency
//
// Refreshes are collapsed per "provider:owner" with singleflight so that N
// concurrent callers holding the same expired credential cause one provider
// call. A lock (locks.Locker) serialises every refresh of the same key,
// expiry-driven or forced, within the instance and, with Redis, across
// instances. The Refresher re-reads the row after taking it so the second
// holder reuses the first one's token instead of refreshing again. Lifecycle
// events are published after the lock is released.
//
// # Reactive retry
//
// A token can be revoked before its expiry. When an operation fails with an
// authorization error (HTTP 401 or the provider's invalid-token code), the
// Executor forces one refresh, rebuilds the Handle and retries exactly once.
// A second authorization failure becomes auth_expired. Other failures such
// as 403, 404, 429 and 5xx are returned unchanged and never retried.
//
// # State
//
// The OAuth state parameter is an HS256 JWT carrying the owner, the provider
// and a single-use nonce. The nonce is registered when the URL is issued and
// consumed on callback, so a state value is accepted at most once.
package oauth2
