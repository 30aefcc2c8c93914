// Package parser extracts the signals torbot records for each page:
// the title, outbound links, e-mail addresses from mailto: links, phone
// numbers from tel: links and the visible text handed to the classifier.
package parser
