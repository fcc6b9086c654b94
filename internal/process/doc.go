// Package process manages process groups for renderer subprocesses.
package process
