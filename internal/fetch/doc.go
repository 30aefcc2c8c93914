// Package fetch retrieves pages for the link tree builder.
//
// HTTPFetcher performs a single GET per call through whatever
// http.Client it is given (normally a Tor client from the tor package),
// caps and decodes the body to UTF-8, and reports every network failure
// as a *model.TransportError so the builder can drop just that branch.
// HTTP error statuses are not failures: a 404 page is still a node.
//
// RobotsFilter is an optional link filter that honours robots.txt.
package fetch
