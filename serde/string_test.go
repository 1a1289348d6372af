package serde_test

import (
	"testing"

	"github.com/flowkit/taskstream/serde"
	"github.com/stretchr/testify/require"
)

func TestStringSerde_Serialize(t *testing.T) {
	s := serde.String()
	input := "hello world"
	output, err := s.Serialize("test-topic", input)
	require.NoError(t, err)
	require.Equal(t, input, string(output))
}

func TestStringSerde_Deserialize(t *testing.T) {
	s := serde.String()
	input := []byte("hello world")
	output, err := s.Deserialize("test-topic", input)
	require.NoError(t, err)
	require.Equal(t, "hello world", output)
}
