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
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/kothar/go-backblaze"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Backblaze stores artifacts in a B2 bucket. B2 uploads are atomic: the
// object is not listable until the upload completes, which satisfies the
// sink contract without a rename step.
type Backblaze struct {
	bucket *backblaze.Bucket
}

// NewBackblaze authorizes against B2 using the configured application
// credentials and resolves the named bucket.
func NewBackblaze(bucketName string) (*Backblaze, error) {
	b2, err := backblaze.NewB2(backblaze.Credentials{
		KeyID:          viper.GetString("backblaze.application_id"),
		ApplicationKey: viper.GetString("backblaze.application_key"),
	})
	if err != nil {
		log.Error().Err(err).Str("BucketName", bucketName).Msg("authorize backblaze failed")
		return nil, err
	}

	bucket, err := b2.Bucket(bucketName)
	if err != nil {
		log.Error().Err(err).Str("BucketName", bucketName).Msg("lookup bucket failed")
		return nil, err
	}
	if bucket == nil {
		log.Error().Str("BucketName", bucketName).Msg("bucket does not exist")
		return nil, errors.New("bucket not found")
	}

	return &Backblaze{bucket: bucket}, nil
}

func (bb *Backblaze) Put(ctx context.Context, path string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := bb.bucket.UploadFile(path, nil, bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Str("FileName", path).Msg("save file to backblaze failed")
		return fmt.Errorf("%w: %s", ErrWrite, err.Error())
	}

	log.Info().Str("FileName", file.Name).Int64("Size", file.ContentLength).Str("ID", file.ID).Msg("uploaded file to backblaze")
	return nil
}

func (bb *Backblaze) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	resp, err := bb.bucket.ListFileNames(path, 1)
	if err != nil {
		return false, err
	}

	for _, file := range resp.Files {
		if file.Name == path {
			return true, nil
		}
	}
	return false, nil
}
