// Package main provides the entry point for the TorBot CLI.
//
// TorBot crawls Tor hidden services (and clearnet sites) from one or more
// root URLs, builds a link tree of the pages it finds, extracts e-mail
// addresses and phone numbers, and classifies each page by its text.
//
// Usage:
//
//	torbot crawl <url>...
//	torbot ip
//	torbot history
//	torbot show <crawl-id>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
