// Package tor provides Tor network connectivity for torbot.
//
// A Client wraps a SOCKS5 dialer and hands out http.Clients that route
// every request through the Tor proxy. NewDirectClient builds the same
// kind of client without a proxy, for hosts that already sit behind a
// transparent Tor gateway. EmbeddedTor starts and stops a private Tor
// daemon through tornago when no external proxy is configured.
//
// The package also validates .onion host names (v3 only, checksum
// verified) and reports the exit address seen by check.torproject.org.
package tor
