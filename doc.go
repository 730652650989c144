// Package storefront is an e-commerce backend: catalog, cart, orders,
// hosted checkout and the JWT session lifecycle that guards them.
//
// Session lifecycle:
//   - Signup stores an unverified user and emails a verification token.
//     Login is refused until VerifyEmail succeeds.
//   - Login issues a short lived access token and a refresh token. Only the
//     latest refresh token is kept on the user record, so a second login ends
//     the refresh ability of the first one and Logout clears it.
//   - Four token kinds (verification, access, refresh, reset) are signed with
//     distinct secrets and audiences. A token of one kind never verifies as
//     another. TokenServiceImpl receives its secrets explicitly and refuses to
//     start without them.
//
// Guards:
//   - RouteAuthenticator.ProtectedRoute is the access guard. It trusts the
//     identity and role signed into the access token.
//   - RouteAuthenticator.AdminRoute is the admin guard. It reads the user
//     record on every request, so a role change takes effect at once while
//     access tokens keep carrying the old role until they expire.
//
// Errors:
//   - Every failure is a go-errors Error carrying a text code and an HTTP
//     status. NewErrorHandler renders them as {"error": message} and never
//     exposes the message of server errors.
//
// Activity sinks:
//   - ActivitySink receives lifecycle and order events. Sinks run best effort
//     (errors are logged) so they never block a request.
package storefront
