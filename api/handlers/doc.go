// Package handlers implements the HTTP handlers of the relaychat API:
// agent registration, room and participant management, message posting with
// relay triggering, meeting control and health probes.
package handlers
