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

package tally

import (
	"encoding/json"
	"fmt"
	"strings"
)

type WinnerKind uint8

const (
	// WinnerNone means no winner has emerged yet but one still could
	WinnerNone WinnerKind = iota
	// WinnerNever means no candidate can win even if all outstanding power votes for it
	WinnerNever
	// WinnerSome means a candidate leads every pairwise comparison, but outstanding
	// power could still overturn one of them
	WinnerSome
	// WinnerUndisputed means a candidate's smallest lead exceeds the outstanding power
	WinnerUndisputed
)

var winnerKindNames = map[WinnerKind]string{
	WinnerNone:       "none",
	WinnerNever:      "never",
	WinnerSome:       "some",
	WinnerUndisputed: "undisputed",
}

func (k WinnerKind) String() string {
	if s, ok := winnerKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Winner is the current winner determination of a tally. Candidate is only
// meaningful for WinnerSome and WinnerUndisputed.
type Winner struct {
	_         struct{} `cbor:",toarray"`
	Kind      WinnerKind
	Candidate uint32
}

func (w Winner) HasCandidate() bool {
	return w.Kind == WinnerSome || w.Kind == WinnerUndisputed
}

func (w Winner) String() string {
	if w.HasCandidate() {
		return fmt.Sprintf("%s(%d)", w.Kind, w.Candidate)
	}
	return w.Kind.String()
}

type winnerJson struct {
	Kind      string  `json:"kind"`
	Candidate *uint32 `json:"candidate,omitempty"`
}

func (w Winner) MarshalJSON() ([]byte, error) {
	tmp := winnerJson{Kind: w.Kind.String()}
	if w.HasCandidate() {
		c := w.Candidate
		tmp.Candidate = &c
	}
	return json.Marshal(tmp)
}

func (w *Winner) UnmarshalJSON(data []byte) error {
	var tmp winnerJson
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	for k, name := range winnerKindNames {
		if strings.EqualFold(name, tmp.Kind) {
			w.Kind = k
			w.Candidate = 0
			if tmp.Candidate != nil {
				w.Candidate = *tmp.Candidate
			}
			return nil
		}
	}
	return fmt.Errorf("unknown winner kind: %q", tmp.Kind)
}

// winnerFromStats maps matrix stats onto a winner determination
func winnerFromStats(stats Stats, outstanding Amount) Winner {
	switch stats.Kind {
	case PositiveColumn:
		if stats.MinMargin.Magnitude.Cmp(outstanding) > 0 {
			return Winner{Kind: WinnerUndisputed, Candidate: stats.Column}
		}
		return Winner{Kind: WinnerSome, Candidate: stats.Column}
	default:
		if stats.NoWinnableColumns {
			return Winner{Kind: WinnerNever}
		}
		return Winner{Kind: WinnerNone}
	}
}
