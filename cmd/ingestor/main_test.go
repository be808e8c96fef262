package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallationFromTopic(t *testing.T) {
	id, err := installationFromTopic("pv/42/production")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, topic := range []string{"pv/x/production", "pv/42", "energy/readings", "pv/0/production"} {
		_, err := installationFromTopic(topic)
		assert.Error(t, err, topic)
	}
}
