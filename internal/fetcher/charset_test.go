package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeCharset_Latin1(t *testing.T) {
	// "entrée" with é as latin-1 0xE9.
	body := []byte{'e', 'n', 't', 'r', 0xE9, 'e'}
	got := decodeCharset("text/html; charset=iso-8859-1", body)
	assert.Equal(t, "entrée", string(got))
}

func TestDecodeCharset_UTF8PassThrough(t *testing.T) {
	body := []byte("entrée")
	got := decodeCharset("text/html; charset=utf-8", body)
	assert.Equal(t, body, got)
}

func TestDecodeCharset_MissingOrUnknown(t *testing.T) {
	body := []byte("happy hour")
	assert.Equal(t, body, decodeCharset("text/html", body))
	assert.Equal(t, body, decodeCharset("", body))
	assert.Equal(t, body, decodeCharset("text/html; charset=not-a-charset", body))
}
