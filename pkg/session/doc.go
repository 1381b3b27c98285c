// Package session implements the OAuth2 session engine of the Gini SDK.
//
// The Manager hands out usable sessions to the API layer: it returns a
// cached session while it is valid, refreshes or logs in when it is not, and
// collapses concurrent requests into a single in-flight authorization
// attempt so the authorization server sees at most one login at a time.
//
// Three flows cover the ways an application can authenticate against the
// Gini authorization server:
//
//   - client flow: OAuth2 implicit grant, tokens arrive via a redirect URL
//     fragment opened in an external browser
//   - server flow: authorization code grant with a client secret and refresh
//     token support
//   - anonymous flow: machine-to-machine provisioning of hidden user
//     accounts through the Gini User Center
//
// See https://pay-api.gini.net/documentation/ for the server-side contract.
package session
