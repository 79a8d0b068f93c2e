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


package sops

import (
	"errors"
	"fmt"
	"os"
	"strings"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	skeys "github.com/getsops/sops/v3/keys"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

// Environment variables naming the master keys used to encrypt
const (
	EnvGcpKmsResourceID = "CONDORCET_GCP_KMS_RESOURCE_ID"
	EnvAwsKmsKeyArns    = "CONDORCET_AWS_KMS_KEY_ARNS"
	EnvAwsKmsProfile    = "CONDORCET_AWS_KMS_PROFILE"
)

const binaryFormat = "binary"

var (
	// ErrNoMasterKeys is returned by Encrypt when no KMS key is configured
	ErrNoMasterKeys = errors.New(
		"sops: no master keys, set " + EnvGcpKmsResourceID + " and/or " + EnvAwsKmsKeyArns,
	)
	ErrAlreadyEncrypted = errors.New("sops: data is already encrypted")
	ErrDecrypt          = errors.New("sops: decrypt failed")
)

// MasterKeys names the KMS keys that protect the data key of each document.
// Each configured provider becomes its own key group.
type MasterKeys struct {
	// Comma separated GCP KMS resource IDs
	GcpResourceIDs string
	// Comma separated AWS KMS key ARNs
	AwsKeyArns string
	AwsProfile string
}

func MasterKeysFromEnv() MasterKeys {
	return MasterKeys{
		GcpResourceIDs: strings.TrimSpace(os.Getenv(EnvGcpKmsResourceID)),
		AwsKeyArns:     strings.TrimSpace(os.Getenv(EnvAwsKmsKeyArns)),
		AwsProfile:     os.Getenv(EnvAwsKmsProfile),
	}
}

func (m MasterKeys) IsZero() bool {
	return m.GcpResourceIDs == "" && m.AwsKeyArns == ""
}

// KeyGroups builds the SOPS key groups. It does not contact any KMS.
func (m MasterKeys) KeyGroups() ([]sopsapi.KeyGroup, error) {
	var groups []sopsapi.KeyGroup
	if m.GcpResourceIDs != "" {
		var group sopsapi.KeyGroup
		for _, k := range gcpkms.MasterKeysFromResourceIDString(m.GcpResourceIDs) {
			group = append(group, skeys.MasterKey(k))
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	if m.AwsKeyArns != "" {
		var group sopsapi.KeyGroup
		for _, k := range awskms.MasterKeysFromArnString(m.AwsKeyArns, nil, m.AwsProfile) {
			group = append(group, skeys.MasterKey(k))
		}
		if len(group) > 0 {
			groups = append(groups, group)
		}
	}
	if len(groups) == 0 {
		return nil, ErrNoMasterKeys
	}
	return groups, nil
}

// Encrypt wraps data in a SOPS binary document whose data key is protected by
// the configured master keys
func (m MasterKeys) Encrypt(data []byte) ([]byte, error) {
	keyGroups, err := m.KeyGroups()
	if err != nil {
		return nil, err
	}
	store := jsonstore.NewBinaryStore(&config.JSONBinaryStoreConfig{})
	branches, err := store.LoadPlainFile(data)
	if err != nil {
		return nil, fmt.Errorf("sops: load plaintext: %w", err)
	}
	for _, branch := range branches {
		for _, item := range branch {
			if item.Key == "sops" {
				return nil, ErrAlreadyEncrypted
			}
		}
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: keyGroups,
			Version:   version.Version,
		},
	}
	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("sops: generate data key: %w", errors.Join(errs...))
	}
	err = scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	})
	if err != nil {
		return nil, fmt.Errorf("sops: encrypt tree: %w", err)
	}
	out, err := store.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("sops: emit document: %w", err)
	}
	return out, nil
}

// Encrypt encrypts data with the master keys named in the environment
func Encrypt(data []byte) ([]byte, error) {
	return MasterKeysFromEnv().Encrypt(data)
}

// Decrypt returns the plaintext of a SOPS binary document. The KMS keys are
// located from the document metadata.
func Decrypt(data []byte) ([]byte, error) {
	ret, err := decrypt.Data(data, binaryFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return ret, nil
}
