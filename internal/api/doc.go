// Package api handles incoming HTTP requests, routing, request validation,
// and response formatting. It acts as an adapter between external clients
// and the moderation service, translating HTTP concerns to queue operations.
package api
