// Package logging provides leveled logging for the transcoding service.
//
// The log level is configured once from the DEBUG and LOG_LEVEL
// environment variables and defaults to info.
package logging
