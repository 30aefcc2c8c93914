// Package log builds slog loggers whose output is sanitized.
//
// SecureHandler wraps any slog.Handler. It masks values under sensitive
// keys (cookie, authorization, token, password and similar), values that
// look like credentials (bearer and basic auth, JWTs, private key blocks)
// and passwords embedded in proxy URLs. With WithContactRedaction it also
// masks e-mail addresses and phone numbers harvested from crawled pages.
//
//	logger := log.NewSecureLogger(os.Stderr, verbose, log.WithContactRedaction())
//	slog.SetDefault(logger)
package log
