// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// hclConfig is the HCL schema; every block is optional
type hclConfig struct {
	Repository  *string `hcl:"repository,optional"`
	Destination *string `hcl:"destination,optional"`

	Fetch *struct {
		BatchSize     *int     `hcl:"batch_size,optional"`
		MaxConcurrent *int     `hcl:"max_concurrent,optional"`
		EnableCaching *bool    `hcl:"enable_caching,optional"`
		CacheTimeout  *string  `hcl:"cache_timeout,optional"`
		Include       []string `hcl:"include,optional"`
		Exclude       []string `hcl:"exclude,optional"`
		MaxFileSize   *int64   `hcl:"max_file_size,optional"`
	} `hcl:"fetch,block"`

	Discovery *struct {
		MaxAttempts *int    `hcl:"max_attempts,optional"`
		BaseDelay   *string `hcl:"base_delay,optional"`
	} `hcl:"discovery,block"`

	Cache *struct {
		Backend    string  `hcl:"backend,label"`
		Addr       *string `hcl:"addr,optional"`
		DB         *int    `hcl:"db,optional"`
		Prefix     *string `hcl:"prefix,optional"`
		MaxEntries *int    `hcl:"max_entries,optional"`
	} `hcl:"cache,block"`

	GitHub *struct {
		TokenEnv          *string  `hcl:"token_env,optional"`
		BaseURL           *string  `hcl:"base_url,optional"`
		RequestsPerSecond *float64 `hcl:"requests_per_second,optional"`
		Timeout           *string  `hcl:"timeout,optional"`
	} `hcl:"github,block"`
}

// 📝 Parse parses the config from HCL. Expressions may call env("NAME").
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "repofetch.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"env": envFunc,
		},
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &raw)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{}
	set(&cfg.Repository, raw.Repository)
	set(&cfg.Destination, raw.Destination)

	if f := raw.Fetch; f != nil {
		set(&cfg.Fetch.BatchSize, f.BatchSize)
		set(&cfg.Fetch.MaxConcurrent, f.MaxConcurrent)
		cfg.Fetch.EnableCaching = f.EnableCaching
		set(&cfg.Fetch.CacheTimeout, f.CacheTimeout)
		cfg.Fetch.Include = f.Include
		cfg.Fetch.Exclude = f.Exclude
		set(&cfg.Fetch.MaxFileSize, f.MaxFileSize)
	}

	if d := raw.Discovery; d != nil {
		set(&cfg.Discovery.MaxAttempts, d.MaxAttempts)
		set(&cfg.Discovery.BaseDelay, d.BaseDelay)
	}

	if c := raw.Cache; c != nil {
		cfg.Cache.Backend = c.Backend
		set(&cfg.Cache.Addr, c.Addr)
		set(&cfg.Cache.DB, c.DB)
		set(&cfg.Cache.Prefix, c.Prefix)
		set(&cfg.Cache.MaxEntries, c.MaxEntries)
	}

	if g := raw.GitHub; g != nil {
		set(&cfg.GitHub.TokenEnv, g.TokenEnv)
		set(&cfg.GitHub.BaseURL, g.BaseURL)
		set(&cfg.GitHub.RequestsPerSecond, g.RequestsPerSecond)
		set(&cfg.GitHub.Timeout, g.Timeout)
	}

	return cfg, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// envFunc reads an environment variable, empty when unset
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})
