// Package application wires the active deployment configuration into the HTTP
// surface and server instance, keeping the main package focused on CLI
// parsing and orchestration.
package application
