/*
Package status writes downloaded files to disk and tracks what changed.

	 fetch.Result
	      |
	      v
	+-----------+      +-------------------+
	|  Manager  +----->|  <dest>/<path>    |
	+-----+-----+      +-------------------+
	      |
	      v
	new / modified / unchanged / failed

🎯 Semantics:
  - every write goes to a temp file in the target directory, then a rename
  - a file whose checksum already matches is left untouched
  - paths must stay below the destination; anything else is ErrUnsafePath
  - one failed write never stops the others
*/
package status
