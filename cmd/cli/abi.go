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

package main

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/arc4-sdk/abi"
	"github.com/icon-project/arc4-sdk/api"
	"github.com/icon-project/arc4-sdk/contract"
)

// ParseHex accepts hex with or without 0x prefix.
func ParseHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex %q", s)
	}
	return b, nil
}

// ParseJSONValue reads a JSON value, from the file when s starts with '@'.
func ParseJSONValue(s string) (interface{}, error) {
	var b []byte
	if strings.HasPrefix(s, "@") {
		var err error
		if b, err = os.ReadFile(s[1:]); err != nil {
			return nil, err
		}
	} else {
		b = []byte(s)
	}
	var v interface{}
	if err := api.UnmarshalBody(io.NopCloser(bytes.NewReader(b)), &v); err != nil {
		return nil, errors.Wrapf(err, "invalid json value err:%s", err.Error())
	}
	return v, nil
}

func integerFormatOf(cmd *cobra.Command) contract.IntegerFormat {
	if hexInt, _ := cmd.Flags().GetBool("hex"); hexInt {
		return contract.HexInteger
	}
	return contract.DecimalInteger
}

func NewAbiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "abi", "Offline ARC-4 type tools")
	rootCmd.PersistentFlags().Bool("hex", false, "print integers as hex")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "type TYPE",
		Short: "Print canonical notation and layout of type",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := abi.ParseType(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, api.TypeInfoOf(t))
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "encode TYPE VALUE",
		Short: "Encode JSON value, or '@file' of JSON value, as type",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := abi.ParseType(args[0])
			if err != nil {
				return err
			}
			v, err := ParseJSONValue(args[1])
			if err != nil {
				return err
			}
			b, err := abi.Encode(t, v)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, &api.EncodeResponse{Type: t.String(), Data: b})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "decode TYPE HEX",
		Short: "Decode bytes as type",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := abi.ParseType(args[0])
			if err != nil {
				return err
			}
			b, err := ParseHex(args[1])
			if err != nil {
				return err
			}
			v, err := abi.Decode(t, b)
			if err != nil {
				return err
			}
			if v, err = contract.ParamOf(v, integerFormatOf(cmd)); err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, &api.DecodeResponse{Type: t.String(), Value: v})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "method SIGNATURE",
		Short: "Print selector and arguments of method signature",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := abi.ParseMethod(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, api.MethodInfoOf(m))
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "address ADDRESS|PUBLIC_KEY",
		Short: "Convert between address and hex public key",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := abi.ParseAddress(args[0])
			if err != nil {
				pk, herr := ParseHex(args[0])
				if herr != nil {
					return err
				}
				if a, err = abi.AddressFromPublicKey(pk); err != nil {
					return err
				}
			}
			return cli.JsonPrettyPrintln(os.Stdout, map[string]interface{}{
				"address":   a.String(),
				"publicKey": hexutil.Bytes(a.PublicKey()),
			})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "app-address APP_ID",
		Short: "Print account address of application",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := abi.IntegerOf(args[0])
			if err != nil {
				return err
			}
			if !id.IsUint64() {
				return errors.Errorf("invalid application id %s", args[0])
			}
			return cli.JsonPrettyPrintln(os.Stdout, abi.ApplicationAddress(id.Uint64()).String())
		},
	})
	return rootCmd, rootVc
}
