// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
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

package common

import (
	"encoding/hex"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/zeebo/blake3"
)

// HashKey derives a stable cache key from an arbitrary set of request
// parameters. Parameters are serialized to JSON and hashed with blake3.
func HashKey(prefix string, params interface{}) string {
	raw, err := json.Marshal(params)
	if err != nil {
		log.Warn().Stack().Err(err).Msg("could not marshal cache key params")
		return prefix
	}

	digest := blake3.Sum256(raw)
	return prefix + ":" + hex.EncodeToString(digest[:])
}
