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


package sops_test

import (
	"testing"

	"github.com/blinklabs-io/condorcet/database/sops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptRequiresMasterKey(t *testing.T) {
	t.Setenv(sops.EnvGcpKmsResourceID, "")
	t.Setenv(sops.EnvAwsKmsKeyArns, "")
	_, err := sops.Encrypt([]byte("plaintext"))
	require.ErrorIs(t, err, sops.ErrNoMasterKeys)
}

func TestDecryptRejectsPlaintext(t *testing.T) {
	_, err := sops.Decrypt([]byte("not a sops document"))
	require.ErrorIs(t, err, sops.ErrDecrypt)
}

func TestMasterKeysFromEnv(t *testing.T) {
	t.Setenv(sops.EnvGcpKmsResourceID, " projects/p/locations/global/keyRings/r/cryptoKeys/k ")
	t.Setenv(sops.EnvAwsKmsKeyArns, "")
	t.Setenv(sops.EnvAwsKmsProfile, "governance")
	keys := sops.MasterKeysFromEnv()
	assert.Equal(t, "projects/p/locations/global/keyRings/r/cryptoKeys/k", keys.GcpResourceIDs)
	assert.Empty(t, keys.AwsKeyArns)
	assert.Equal(t, "governance", keys.AwsProfile)
	assert.False(t, keys.IsZero())
}

func TestKeyGroups(t *testing.T) {
	keys := sops.MasterKeys{
		GcpResourceIDs: "projects/p/locations/global/keyRings/r/cryptoKeys/a,projects/p/locations/global/keyRings/r/cryptoKeys/b",
		AwsKeyArns:     "arn:aws:kms:us-east-1:111122223333:key/abcd",
	}
	groups, err := keys.KeyGroups()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 2)
	assert.Len(t, groups[1], 1)

	_, err = sops.MasterKeys{}.KeyGroups()
	require.ErrorIs(t, err, sops.ErrNoMasterKeys)
	assert.True(t, sops.MasterKeys{}.IsZero())
}
