//go:build tools
// +build tools

// Package tools pins the code generators run through go generate
// (mockgen for contract) in go.mod.
package tutor_realtime

import (
	_ "go.uber.org/mock/mockgen"
)
