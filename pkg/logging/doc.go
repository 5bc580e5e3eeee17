// Package logging builds the slog loggers used across harproxy.
//
// Logs go to stderr as text by default:
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("recorded", "method", "GET", "url", u)
//
// When a log file is configured, Open fans every record out to stderr and
// to the file (always JSON) through a MultiHandler.
//
// Components accept a *slog.Logger and fall back to Nop() when none is given.
package logging
