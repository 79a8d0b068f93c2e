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

package models

import "time"

const GovernanceConfigRowId = 1

// GovernanceConfig holds the JSON encoded module configuration in a single row
type GovernanceConfig struct {
	ID        uint   `gorm:"primarykey"`
	Config    string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName returns the table name
func (GovernanceConfig) TableName() string {
	return "governance_config"
}
