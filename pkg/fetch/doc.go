/*
Package fetch downloads every file of a repository in batches.

	 Download
	    |
	    v
	Analyzing ---> Discovering ---> Downloading ---> Complete
	                (retry,          batch 1..N,
	                 fallback)       <= MaxConcurrent
	                                 fetches each

🔄 Flow:
  - options are validated before anything touches the network
  - discovery lists files, retrying rate limits with backoff
  - directories and filtered paths are dropped
  - batches run one after another; inside a batch fetches run concurrently
  - each fetch checks the cache under "owner/repo/path" first

A failed file never fails the download. It is listed in Result.Failed and
left out of Result.Contents.
*/
package fetch
