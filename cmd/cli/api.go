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
	"context"
	"encoding/json"
	"os"

	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/icon-project/arc4-sdk/api"
	"github.com/icon-project/arc4-sdk/database"
)

func GetStringToInterface(fs *pflag.FlagSet, name string) (map[string]interface{}, error) {
	m, err := fs.GetStringToString(name)
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	r := make(map[string]interface{})
	for k, v := range m {
		r[k] = v
	}
	return r, nil
}

func ClientPersistentPreRunE(vc *viper.Viper, c *api.Client) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateFlagsWithViper(vc, cmd.Flags()); err != nil {
			return err
		}
		l := log.GlobalLogger()
		if lv, err := log.ParseLevel(vc.GetString("log_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel log_level err:%s", err.Error())
		} else {
			l.SetLevel(lv)
		}
		if lv, err := log.ParseLevel(vc.GetString("console_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel console_level err:%s", err.Error())
		} else {
			l.SetConsoleLevel(lv)
		}
		dumpLogLevel, err := log.ParseLevel(vc.GetString("dump_log_level"))
		if err != nil {
			return errors.Wrapf(err, "fail to parseLevel dump_log_level err:%s", err.Error())
		}
		*c = *api.NewClient(vc.GetString("url"), dumpLogLevel, l)
		return nil
	}
}

func AddClientRequiredFlags(c *cobra.Command) {
	pFlags := c.PersistentFlags()
	pFlags.String("url", "http://localhost:8080", "server address")
	pFlags.String("log_level", "info", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("console_level", "info", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("dump_log_level", "trace", "client dump log level (trace,debug,info)")
}

// callArgsOf returns '--args' JSON when given, otherwise '--param' pairs.
func callArgsOf(cmd *cobra.Command) (interface{}, error) {
	if raw := cmd.Flag("args").Value.String(); len(raw) > 0 {
		return ParseJSONValue(raw)
	}
	m, err := GetStringToInterface(cmd.Flags(), "param")
	if err != nil || m == nil {
		return nil, err
	}
	return m, nil
}

func NewApiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "api", "API cli")
	var c api.Client
	rootCmd.PersistentPreRunE = ClientPersistentPreRunE(rootVc, &c)
	AddClientRequiredFlags(rootCmd)
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "type TYPE",
		Short: "Parse type notation",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Type(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "encode TYPE VALUE",
		Short: "Encode JSON value, or '@file' of JSON value, as type",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := ParseJSONValue(args[1])
			if err != nil {
				return err
			}
			b, err := c.Encode(args[0], v)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, &api.EncodeResponse{Type: args[0], Data: b})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "decode TYPE HEX",
		Short: "Decode bytes as type",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ParseHex(args[1])
			if err != nil {
				return err
			}
			v, err := c.Decode(args[0], b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, &api.DecodeResponse{Type: args[0], Value: v})
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "method SIGNATURE",
		Short: "Parse method signature",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Method(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	streamCmd := &cobra.Command{
		Use:   "stream FILE",
		Short: "Run JSON array of stream requests over one websocket",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var reqs []api.StreamRequest
			if err = json.Unmarshal(b, &reqs); err != nil {
				return err
			}
			return c.Stream(context.Background(), reqs, func(resp *api.StreamResponse) error {
				return cli.JsonPrettyPrintln(os.Stdout, resp)
			})
		},
	}
	rootCmd.AddCommand(streamCmd)
	openapiCmd := &cobra.Command{
		Use:   "openapi [NAME]",
		Short: "Print OpenAPI document of server, or of registered specification",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				r, err := c.OpenAPI()
				if err != nil {
					return err
				}
				return cli.JsonPrettyPrintln(os.Stdout, r)
			}
			r, err := c.ContractOpenAPI(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(openapiCmd)
	NewContractCommand(rootCmd, &c)
	return rootCmd, rootVc
}

func NewContractCommand(parentCmd *cobra.Command, c *api.Client) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "contract",
		Short: "Registered ARC-56 specifications",
	}
	parentCmd.AddCommand(rootCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered specifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			p := database.Pageable{}
			p.Page, _ = fs.GetUint("page")
			p.Size, _ = fs.GetUint("size")
			p.Sort, _ = fs.GetString("sort")
			r, err := c.Contracts(p)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	listFlags := listCmd.Flags()
	listFlags.Uint("page", 0, "page number, 0-indexed")
	listFlags.Uint("size", 0, "page size, 0 for unlimited")
	listFlags.String("sort", "", "sort order, for example 'updated_at desc,name'")
	rootCmd.AddCommand(listCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "register FILE",
		Short: "Register ARC-56 specification file",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			r, err := c.Register(b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "get NAME",
		Short: "Get registered specification",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Contract(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "delete NAME",
		Short: "Delete registered specification",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.DeleteContract(args[0]); err != nil {
				return err
			}
			cmd.Println("Operation success")
			return nil
		},
	})

	callCmd := &cobra.Command{
		Use:   "call NAME METHOD",
		Short: "Encode application arguments of method call",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := callArgsOf(cmd)
			if err != nil {
				return err
			}
			r, err := c.EncodeCall(args[0], args[1], v)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	callFlags := callCmd.Flags()
	callFlags.StringToString("param", nil, "key=value, method arguments by name")
	callFlags.String("args", "", "method arguments as JSON list or object, or '@file', overrides '--param'")
	rootCmd.AddCommand(callCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "return NAME METHOD HEX",
		Short: "Decode return log of method call",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ParseHex(args[2])
			if err != nil {
				return err
			}
			r, err := c.DecodeReturn(args[0], args[1], b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "event NAME HEX",
		Short: "Decode event log",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ParseHex(args[1])
			if err != nil {
				return err
			}
			r, err := c.DecodeEvent(args[0], b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})
	return rootCmd
}
