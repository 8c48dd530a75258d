/*
Package cache holds fetched file contents for a bounded time so that repeated
downloads of the same repository skip the network.

	+-----------+        +-----------+
	|  Memory   |        |   Redis   |
	| (process) |        | (shared)  |
	+-----+-----+        +-----+-----+
	      |                    |
	      +---------+----------+
	                |
	          +-----+-----+
	          |   Store   |
	          +-----------+

🎯 Semantics:
  - the ttl is cache-wide, not per entry
  - a Get at or after ttl since the matching Put is a miss
  - Memory evicts lazily on read; there is no background sweep
  - Put replaces an entry as a whole and resets its timestamp

Memory is safe for concurrent use; every operation takes the same mutex.
*/
package cache
