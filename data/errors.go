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

package data

import "errors"

var (
	ErrNotFound            = errors.New("fund not found")
	ErrBeginAfterEnd       = errors.New("invalid interval; begin after end date")
	ErrDateRangeEmpty      = errors.New("no trading dates fall within the requested range")
	ErrInsufficientHistory = errors.New("fund has insufficient history in the requested range")
	ErrStaleDataExceeded   = errors.New("too many periods carried forward from stale prices")
	ErrNoAssets            = errors.New("at least one fund or a risk free asset is required")
	ErrProviderStatus      = errors.New("nav provider returned invalid response code")
)
