//go:build tools
// +build tools

// Package tools pins the tools invoked through go generate (mockgen),
// so that go.mod and go.sum track them like any other dependency.
package collab_lab

import (
	_ "go.uber.org/mock/mockgen"
)
