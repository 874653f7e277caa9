package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qaix/qaixbot/internal/config"
)

func TestMergeChannels(t *testing.T) {
	merged := mergeChannels(
		[]string{"#qaix", "#secret hunter2"},
		[]string{"#QAIX", "#new", "#secret other", "", "#keyed key"},
	)
	assert.Equal(t, []string{"#qaix", "#secret hunter2", "#new", "#keyed key"}, merged)

	assert.Equal(t, []string{"#a"}, mergeChannels(nil, []string{"#a"}))
	assert.Equal(t, []string{"#a"}, mergeChannels([]string{"#a"}, nil))
}

func TestDescribeServer(t *testing.T) {
	assert.Equal(t, "irc.example.net:6697", describeServer(&config.Config{Server: "irc.example.net", Port: 6697, Transport: "tls"}))
	assert.Equal(t, "/run/ircd.sock", describeServer(&config.Config{Transport: "unix", SocketPath: "/run/ircd.sock"}))
}
