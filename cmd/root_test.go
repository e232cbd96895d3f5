package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"serve", "tools", "invoke", "metrics", "slowest", "export", "prune", "alerts"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommand_Use(t *testing.T) {
	assert.Equal(t, "agentswarm", rootCmd.Use)
}
