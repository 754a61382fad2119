// Package domain contains the core business entities, value objects, and
// domain logic of the moderation queue. It defines moderator tasks, the closed
// set of task kinds and their scheduling properties, language filters and
// principals, independent of any storage or delivery mechanism.
package domain
