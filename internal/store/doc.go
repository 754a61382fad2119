// Package store defines interfaces for data persistence operations.
// These interfaces keep the moderation logic independent of the database;
// internal/platform/postgres provides the production implementation.
package store
