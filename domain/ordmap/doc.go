// Package ordmap implements an ordered, concurrency-safe map from byte
// keys to byte values. It is backed by a red-black tree with parent links
// and a black sentinel, and guarded by a single reader/writer lock.
//
// Keys compare lexicographically as unsigned bytes. Values are replaced on
// re-insertion of an equal key. There is no delete and no iteration.
//
// A Map can own its lock (New) or join a lock domain shared with other
// structures (NewShared). Callers holding a shared lock use the ...Locked
// methods to read or update several maps in one critical section.
package ordmap
