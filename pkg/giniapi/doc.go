// Package giniapi is a low-level client for the Gini document processing
// API. It deals in raw JSON payloads and resource URLs; the typed document
// and extraction models live in the document package on top of it.
//
// Every request is authorized through a RequestFactory, which obtains a
// session from the session manager before the request leaves the process.
package giniapi
