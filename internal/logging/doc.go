// Package logging configures structured slog output for sift.
//
// By default the server logs JSON to stderr at the configured level. With
// --debug, logs are also written to ~/.sift/logs/server.log with size-based
// rotation, and `sift logs` can tail or follow that file.
package logging
