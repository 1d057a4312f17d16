// Package testutil contains helper builders used across tests to reduce
// boilerplate when scripting model turns and fragment streams. They are not
// intended for production usage.
package testutil
