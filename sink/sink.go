// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package sink

import (
	"context"
	"errors"
)

// ErrWrite indicates the sink refused or failed a write. The artifact is
// guaranteed not to be visible at the target path afterwards.
var ErrWrite = errors.New("sink write failed")

// Sink stores filing artifacts under their canonical paths. Put must be
// atomic: either the complete artifact becomes visible at path or nothing
// does.
type Sink interface {
	Put(ctx context.Context, path string, body []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}
