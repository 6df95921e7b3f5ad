// Package rpcstub is the network Client Information Service backend
// (spec.md §4.2, cis_interface_type = "rpc"): a real grpc client/server pair,
// using a single generic Execute RPC keyed by an operation name instead of
// ~25 hand-generated protobuf methods, carried over a JSON wire codec
// (spec.md §6 "rpc_framework_type" names the wire framework; this runtime
// picks grpc+JSON rather than requiring a protoc run to build).
package rpcstub

import (
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/grpc/encoding"
)

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

func (jsonCodec) Marshal(v any) ([]byte, error)      { return jsonAPI.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return jsonAPI.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return codecName }
