/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package abi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Address(t *testing.T) {
	a, err := ParseAddress(testAddress1)
	assert.NoError(t, err)
	assert.Equal(t, testAddress1Bytes, a.PublicKey())
	assert.Equal(t, testAddress1, a.String())
	assert.False(t, a.IsZero())

	b, err := AddressFromPublicKey(testAddress1Bytes)
	assert.NoError(t, err)
	assert.Equal(t, a, b)

	assert.True(t, ZeroAddress.IsZero())
	assert.Equal(t, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ", ZeroAddress.String())

	for _, s := range []string{
		"",
		"BADADDRESS",
		testAddress1[:AddressTextLen-1],
		testAddress1 + "A",
		"NO2H6ZU47Q36GJ6GVHUKGEBEQINN7ZWVACMWZQGIYUOE3RBSRVYHV4ACJI",
		"mo2h6zu47q36gj6gvhukgebeqinn7zwvacmwzqgiyuoe3rbsrvyhv4acji",
	} {
		_, err = ParseAddress(s)
		assert.Error(t, err, s)
	}
	_, err = AddressFromPublicKey([]byte{1})
	assert.Error(t, err)
}

func Test_AddressJSON(t *testing.T) {
	type holder struct {
		Owner Address `json:"owner"`
	}
	b, err := json.Marshal(holder{Owner: MustParseAddress(testAddress2)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"owner":"`+testAddress2+`"}`, string(b))

	var h holder
	assert.NoError(t, json.Unmarshal(b, &h))
	assert.Equal(t, testAddress2, h.Owner.String())
	assert.Error(t, json.Unmarshal([]byte(`{"owner":"BADADDRESS"}`), &h))
}

func Test_ApplicationAddress(t *testing.T) {
	assert.Equal(t, "WCS6TVPJRBSARHLN2326LRU5BYVJZUKI2VJ53CAWKYYHDE455ZGKANWMGM", ApplicationAddress(1).String())
	assert.Equal(t, "WRBMNT66ECE2AOYKM76YVWIJMBW6Z3XCQZOKG5BL7NISAQC2LBGEKTZLRM", ApplicationAddress(123).String())
}
