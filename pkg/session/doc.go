/*
Package session tracks where each call stands in the pathway.

The Manager wraps a ports.CallStateStore with lazy initialization (unseen calls
start at the pathway's entry node) and per-call mutual exclusion, so that
concurrent turns of the same call never lose a node advance. Locks are reference
counted and released as soon as no turn holds them; an optional distributed
locker extends the guarantee across replicas.
*/
package session
