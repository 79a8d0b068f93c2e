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

package proposal

// Message is an opaque side effect attached to a choice. It is never
// interpreted here, only stored and handed to the execution sink.
type Message struct {
	_    struct{} `cbor:",toarray"`
	Type string   `json:"type"`
	Data []byte   `json:"data"`
}

// Choice is one option of a proposal along with the messages to execute
// if it wins
type Choice struct {
	_        struct{}  `cbor:",toarray"`
	Messages []Message `json:"messages"`
}
