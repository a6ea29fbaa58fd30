// Package cli turns tlx command-line arguments into an app.Config. Usage
// and validation failures are reported as ExitError values carrying the
// process exit code.
package cli
