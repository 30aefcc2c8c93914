// Package info gathers a one-page intelligence summary for a single URL.
//
// Gatherer fetches the page and its site's robots.txt, checks the site
// root for exposed version control and server files, and collects the
// page's response headers, meta tags, description, e-mail addresses,
// S3 bucket hosts and Bitcoin addresses. Bitcoin addresses are only
// reported when their checksum is valid.
package info
