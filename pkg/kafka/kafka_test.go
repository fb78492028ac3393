package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[sample]([]byte(`{"id":"doc-1","count":3}`))
	require.NoError(t, err)
	assert.Equal(t, sample{ID: "doc-1", Count: 3}, got)

	_, err = DecodeJSON[sample]([]byte(`{"id":`))
	assert.ErrorContains(t, err, "decoding kafka message")
}
