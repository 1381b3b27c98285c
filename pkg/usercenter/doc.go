// Package usercenter is a client for the Gini User Center API, the backend
// behind anonymous user accounts. Most of its endpoints are restricted to
// confidential clients: the Manager authenticates itself with the client
// credentials grant and transparently renews its client token.
package usercenter
