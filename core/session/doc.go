// Package session keeps each user's in-progress answer in memory.
// Access is sharded by user id and can be serialized per user via Store.Lock.
package session
