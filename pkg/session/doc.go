/*
Package session implements session management and persistence orchestration.

It serializes operations on the same session, inside one process through a
reference-counted mutex map and across replicas through an optional
distributed locker, and bumps the snapshot revision on every write.
*/
package session
