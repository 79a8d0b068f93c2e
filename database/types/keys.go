// Copyright 2025 Blink Labs Software
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

package types

import (
	"encoding/binary"
	"errors"
)

const (
	ProposalBlobKeyPrefix  = "p"
	CommitTimestampBlobKey = "metadata_commit_timestamp"
)

var ErrInvalidBlobKey = errors.New("invalid blob key")

func BlobKeyUint64ToBytes(input uint64) []byte {
	ret := make([]byte, 8)
	binary.BigEndian.PutUint64(ret, input)
	return ret
}

// ProposalBlobKey returns the key of a proposal record. Big endian IDs keep
// proposals in creation order under iteration.
func ProposalBlobKey(id uint64) []byte {
	key := []byte(ProposalBlobKeyPrefix)
	key = append(key, BlobKeyUint64ToBytes(id)...)
	return key
}

// ProposalIDFromBlobKey is the inverse of ProposalBlobKey
func ProposalIDFromBlobKey(key []byte) (uint64, error) {
	if len(key) != len(ProposalBlobKeyPrefix)+8 ||
		string(key[:len(ProposalBlobKeyPrefix)]) != ProposalBlobKeyPrefix {
		return 0, ErrInvalidBlobKey
	}
	return binary.BigEndian.Uint64(key[len(ProposalBlobKeyPrefix):]), nil
}
