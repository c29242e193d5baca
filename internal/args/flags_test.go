package args

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestList_SetOverwritesSameName(t *testing.T) {
	l := &List{}
	l.Set("chain", "a")
	l.Set("chain", "b")
	assert.Equal(t, []string{"--chain=b"}, l.Render())
}

func TestList_ApplyUserArgs_RemovalOnly(t *testing.T) {
	l := &List{}
	l.SetBool("insecure-validator-i-know-what-i-do")
	l.ApplyUserArgs([]string{"-:--insecure-validator-i-know-what-i-do"})
	assert.False(t, l.Has("insecure-validator-i-know-what-i-do"))
}

func TestList_ApplyUserArgs_RawPositionalPreserved(t *testing.T) {
	l := &List{}
	l.ApplyUserArgs([]string{"positional-value"})
	assert.Equal(t, []string{"positional-value"}, l.Render())
}

func TestList_ApplyUserArgs_ValueFlagOverride(t *testing.T) {
	l := &List{}
	l.Set("log", "info")
	l.ApplyUserArgs([]string{"--log=debug"})
	assert.Equal(t, []string{"--log=debug"}, l.Render())
}

func TestList_ApplyUserArgs_ProtectedFlagResistsPlainOverride(t *testing.T) {
	l := &List{}
	l.SetProtected("chain", "rococo-local.json")
	l.ApplyUserArgs([]string{"--chain=custom.json"})
	assert.Equal(t, []string{"--chain=rococo-local.json"}, l.Render())
}

func TestList_ApplyUserArgs_ProtectedFlagRemovableWithRemovalOperator(t *testing.T) {
	l := &List{}
	l.SetProtected("chain", "rococo-local.json")
	l.ApplyUserArgs([]string{"-:--chain", "--chain=custom.json"})
	assert.Equal(t, []string{"--chain=custom.json"}, l.Render())
}
