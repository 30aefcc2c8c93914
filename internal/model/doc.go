// Package model defines the value types shared by the torbot components.
//
// This package contains the following main types:
//   - Response: The raw result of fetching one URL through the proxy
//   - Page: The signals parsed out of a response body
//   - Classification: The category label and confidence for a page
//   - TransportError, ParseError: Recoverable, per-branch failures
//
// The fetch, parser, classify and linktree packages all exchange these
// types, so they live here to keep the import graph acyclic.
package model
