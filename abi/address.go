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
	"bytes"
	"crypto/sha512"
	"encoding/binary"

	"github.com/icon-project/btp2/common/errors"
	"github.com/multiformats/go-base32"
)

const (
	checksumSize   = 4
	AddressTextLen = 58

	appIDPrefix = "appID"
)

var (
	addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)
	ZeroAddress     = Address{}
)

// Address is a 32-byte public key. Its text form is the base32 encoding,
// without padding, of the key followed by a 4-byte checksum.
type Address [addressSize]byte

func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) != AddressTextLen {
		return a, errors.Errorf("invalid address length %d, expected %d", len(s), AddressTextLen)
	}
	b, err := addressEncoding.DecodeString(s)
	if err != nil {
		return a, errors.Wrapf(err, "fail to decode address %s err:%s", s, err.Error())
	}
	if len(b) != addressSize+checksumSize {
		return a, errors.Errorf("invalid decoded address length %d", len(b))
	}
	copy(a[:], b[:addressSize])
	if !bytes.Equal(a.checksum(), b[addressSize:]) {
		return ZeroAddress, errors.Errorf("invalid address checksum %s", s)
	}
	if a.String() != s {
		return ZeroAddress, errors.Errorf("invalid address %s, not canonical form", s)
	}
	return a, nil
}

func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func AddressFromPublicKey(pk []byte) (Address, error) {
	var a Address
	if len(pk) != addressSize {
		return a, errors.Errorf("invalid public key length %d, expected %d", len(pk), addressSize)
	}
	copy(a[:], pk)
	return a, nil
}

// ApplicationAddress returns the address controlled by the application.
func ApplicationAddress(appID uint64) Address {
	b := make([]byte, len(appIDPrefix)+8)
	copy(b, appIDPrefix)
	binary.BigEndian.PutUint64(b[len(appIDPrefix):], appID)
	return sha512.Sum512_256(b)
}

func (a Address) checksum() []byte {
	h := sha512.Sum512_256(a[:])
	return h[len(h)-checksumSize:]
}

func (a Address) PublicKey() []byte {
	return append([]byte{}, a[:]...)
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	b := make([]byte, 0, addressSize+checksumSize)
	b = append(b, a[:]...)
	b = append(b, a.checksum()...)
	return addressEncoding.EncodeToString(b)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	v, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
