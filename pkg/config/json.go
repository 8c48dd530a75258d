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
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🔧 JSONParser reads .json configs. Unknown fields and trailing data are
// rejected; a blank file is an empty config.
type JSONParser struct{}

func init() {
	Register(&JSONParser{})
}

func (p *JSONParser) CanParse(filename string) bool {
	return filepath.Ext(strings.ToLower(filename)) == ".json"
}

// 📝 Parse decodes exactly one JSON object
func (p *JSONParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	cfg := &Config{}
	if len(bytes.TrimSpace(data)) == 0 {
		zerolog.Ctx(ctx).Debug().Msg("empty JSON config")
		return cfg, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, errors.Errorf("parsing JSON: %w", err)
	}
	if dec.More() {
		return nil, errors.Errorf("parsing JSON: unexpected data after offset %d", dec.InputOffset())
	}
	return cfg, nil
}
