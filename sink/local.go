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
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Local stores artifacts on the filesystem beneath a root directory. Writes
// go to a nonce-suffixed temporary file and are committed with an atomic
// rename, so a cancelled run never leaves a partial artifact at a canonical
// path.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWrite, err.Error())
	}
	return &Local{root: root}, nil
}

func (local *Local) Put(ctx context.Context, path string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full := filepath.Join(local.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("%w: %s", ErrWrite, err.Error())
	}

	tmp := fmt.Sprintf("%s.tmp-%s", full, uuid.New().String())
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return fmt.Errorf("%w: %s", ErrWrite, err.Error())
	}

	if err := os.Rename(tmp, full); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			log.Warn().Err(rmErr).Str("TempFile", tmp).Msg("could not remove temp artifact")
		}
		return fmt.Errorf("%w: %s", ErrWrite, err.Error())
	}

	return nil
}

func (local *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(local.root, filepath.FromSlash(path)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
