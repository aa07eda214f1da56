// Package integration provides integration tests for the ledgersync API server.
// These tests run the complete server against a scripted provider and exercise
// account refresh, cursor resumption, removals and failure reporting.
package integration
