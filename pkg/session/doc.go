/*
Package session implements session management and persistence orchestration.

A Manager serializes every operation on a thread ID (one in-flight step per
session), optionally coordinating with other replicas through a distributed
locker, and delegates durability to a ports.StateStore.
*/
package session
