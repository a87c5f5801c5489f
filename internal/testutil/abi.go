package testutil

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// PackOutputs ABI-encodes values as the return data of method.
func PackOutputs(t *testing.T, contractABI *abi.ABI, method string, values ...interface{}) []byte {
	t.Helper()
	m, ok := contractABI.Methods[method]
	if !ok {
		t.Fatalf("method %s not in ABI", method)
	}
	data, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("packing %s outputs: %v", method, err)
	}
	return data
}

// UnpackInputs decodes the arguments of a call to method from tx/call data.
func UnpackInputs(t *testing.T, contractABI *abi.ABI, data []byte) (string, []interface{}) {
	t.Helper()
	if len(data) < 4 {
		t.Fatalf("call data too short: %x", data)
	}
	m, err := contractABI.MethodById(data[:4])
	if err != nil {
		t.Fatalf("unknown selector %x: %v", data[:4], err)
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpacking %s inputs: %v", m.Name, err)
	}
	return m.Name, args
}
