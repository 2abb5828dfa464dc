// Package logging provides a small leveled logger shared by the server and
// the RAW decode worker.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions, including degraded decode paths
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the process
//
// The level is read once from LOG_LEVEL (or DEBUG=1) and can be overridden
// with SetLevel.
package logging
