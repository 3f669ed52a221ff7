package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRootCommand 测试根命令及子命令注册
func TestRootCommand(t *testing.T) {
	root := GetRootCmd()
	require.NotNil(t, root)
	assert.Equal(t, "internship-approval", root.Use)

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["server"], "server subcommand should be registered")
	assert.True(t, names["migrate"], "migrate subcommand should be registered")
}

// TestServerCommandFlags 测试 server 命令的配置标志
func TestServerCommandFlags(t *testing.T) {
	root := GetRootCmd()
	server, _, err := root.Find([]string{"server"})
	require.NoError(t, err)
	assert.NotNil(t, server.Flags().Lookup("config"))
}
