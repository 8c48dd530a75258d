/*
Package config loads repofetch settings from YAML, JSON or HCL.

	   .repofetch.yaml / .json / .hcl
	                |
	          GetParser(name)
	                |
	      +---------+---------+
	      |         |         |
	+-----+--+ +----+---+ +---+----+
	|  YAML  | |  JSON  | |  HCL   |
	+-----+--+ +----+---+ +---+----+
	      |         |         |
	      +---------+---------+
	                |
	     ApplyDefaults + Validate
	                |
	   fetch / discovery / github options

🎯 Rules:
  - unknown fields are errors in YAML and JSON
  - durations are Go duration strings ("5m", "1s")
  - the GitHub token never lives in the file; github.token_env names the
    environment variable holding it
  - a missing file is fine for LoadOptional and means "all defaults"

Example YAML:

	repository: walteh/repofetch@main
	destination: ./out
	fetch:
	  batch_size: 20
	  max_concurrent: 5
	  cache_timeout: 5m
	  exclude: ["vendor/**"]
	cache:
	  backend: redis
	  addr: localhost:6379

Example HCL:

	repository = "walteh/repofetch"

	fetch {
	  include = ["pkg/**", "cmd/**"]
	}

	cache "redis" {
	  addr = env("REDIS_ADDR")
	}
*/
package config
