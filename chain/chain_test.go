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

package chain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/blinklabs-io/condorcet/chain"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

func TestExpirationIsExpired(t *testing.T) {
	testDefs := []struct {
		expiration chain.Expiration
		block      chain.Block
		expected   bool
	}{
		{chain.Never(), chain.Block{Height: 1 << 62, Time: testTime}, false},
		{chain.AtHeight(10), chain.Block{Height: 9}, false},
		{chain.AtHeight(10), chain.Block{Height: 10}, true},
		{chain.AtHeight(10), chain.Block{Height: 11}, true},
		{chain.AtTime(testTime), chain.Block{Time: testTime.Add(-time.Nanosecond)}, false},
		{chain.AtTime(testTime), chain.Block{Time: testTime}, true},
		{chain.AtTime(testTime), chain.Block{Time: testTime.Add(time.Hour)}, true},
	}
	for _, testDef := range testDefs {
		assert.Equal(
			t,
			testDef.expected,
			testDef.expiration.IsExpired(testDef.block),
			"%s at %s",
			testDef.expiration,
			testDef.block,
		)
	}
}

func TestExpirationEncodings(t *testing.T) {
	for _, expiration := range []chain.Expiration{
		chain.Never(),
		chain.AtHeight(12345),
		chain.AtTime(testTime.Add(123 * time.Nanosecond)),
	} {
		cborData, err := cbor.Marshal(expiration)
		require.NoError(t, err)
		var fromCbor chain.Expiration
		require.NoError(t, cbor.Unmarshal(cborData, &fromCbor))
		assert.Equal(t, expiration, fromCbor)

		jsonData, err := json.Marshal(expiration)
		require.NoError(t, err)
		var fromJson chain.Expiration
		require.NoError(t, json.Unmarshal(jsonData, &fromJson))
		assert.True(t, expiration.Time.Equal(fromJson.Time))
		assert.Equal(t, expiration.Kind, fromJson.Kind)
		assert.Equal(t, expiration.Height, fromJson.Height)
	}
	var e chain.Expiration
	require.Error(t, json.Unmarshal([]byte(`{"kind":"at_height"}`), &e))
	require.Error(t, json.Unmarshal([]byte(`{"kind":"sometime"}`), &e))
}

func TestDuration(t *testing.T) {
	block := chain.Block{Height: 100, Time: testTime}
	assert.Equal(t, chain.AtHeight(150), chain.Heights(50).After(block))
	assert.Equal(
		t,
		chain.AtTime(testTime.Add(time.Hour)),
		chain.Period(time.Hour).After(block),
	)
	require.NoError(t, chain.Heights(1).Validate())
	require.ErrorIs(t, chain.Duration{}.Validate(), chain.ErrInvalidDuration)
	require.ErrorIs(
		t,
		chain.Duration{Height: 1, Time: time.Second}.Validate(),
		chain.ErrInvalidDuration,
	)

	cmp, err := chain.Heights(5).Compare(chain.Heights(7))
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)
	cmp, err = chain.Period(time.Hour).Compare(chain.Period(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)
	_, err = chain.Heights(5).Compare(chain.Period(time.Hour))
	require.ErrorIs(t, err, chain.ErrDurationUnitMismatch)
}

func TestDurationJson(t *testing.T) {
	data, err := json.Marshal(chain.Period(36 * time.Hour))
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":"36h0m0s"}`, string(data))
	var d chain.Duration
	require.NoError(t, json.Unmarshal([]byte(`{"height":42}`), &d))
	assert.Equal(t, chain.Heights(42), d)
	require.ErrorIs(
		t,
		json.Unmarshal([]byte(`{"time":"soon"}`), &d),
		chain.ErrInvalidDuration,
	)
}

func TestTimeClock(t *testing.T) {
	now := testTime.Add(95 * time.Second)
	clock := chain.NewTimeClock(
		testTime,
		20*time.Second,
		chain.WithNowFunc(func() time.Time { return now }),
	)
	assert.Equal(t, chain.Block{Height: 4, Time: now}, clock.Current())
	now = testTime.Add(-time.Minute)
	assert.Equal(t, uint64(0), clock.Current().Height)
}

func TestManualClock(t *testing.T) {
	clock := chain.NewManualClock(chain.Block{Height: 1, Time: testTime})
	block := clock.Advance(10, time.Hour)
	assert.Equal(t, uint64(11), block.Height)
	assert.Equal(t, testTime.Add(time.Hour), block.Time)
	assert.Equal(t, block, clock.Current())
	clock.Set(chain.Block{Height: 3})
	assert.Equal(t, uint64(3), clock.Current().Height)
}

func TestParseDuration(t *testing.T) {
	testDefs := []struct {
		input    string
		expected chain.Duration
		err      bool
	}{
		{input: "100 blocks", expected: chain.Heights(100)},
		{input: "1block", expected: chain.Heights(1)},
		{input: "42b", expected: chain.Heights(42)},
		{input: "168h", expected: chain.Period(168 * time.Hour)},
		{input: " 90m ", expected: chain.Period(90 * time.Minute)},
		{input: "0 blocks", err: true},
		{input: "-5m", err: true},
		{input: "soon", err: true},
		{input: "", err: true},
	}
	for _, testDef := range testDefs {
		d, err := chain.ParseDuration(testDef.input)
		if testDef.err {
			require.ErrorIs(t, err, chain.ErrInvalidDuration, testDef.input)
			continue
		}
		require.NoError(t, err, testDef.input)
		assert.Equal(t, testDef.expected, d, testDef.input)
	}
}
