package fetcher

import (
	"io"
	"mime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeCharset converts a response body to UTF-8 based on the Content-Type
// charset parameter. Restaurant sites on older CMSes still serve latin-1
// and windows-1252; the pattern matcher needs clean UTF-8. Unknown or
// missing charsets pass the body through unchanged.
func decodeCharset(contentType string, body []byte) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	name := strings.ToLower(params["charset"])
	if name == "" || name == "utf-8" || name == "utf8" {
		return body
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		zap.L().Debug("fetcher: unsupported charset, passing through",
			zap.String("charset", name),
		)
		return body
	}

	decoded, err := io.ReadAll(enc.NewDecoder().Reader(strings.NewReader(string(body))))
	if err != nil {
		zap.L().Debug("fetcher: charset decode failed, passing through",
			zap.String("charset", name),
			zap.Error(err),
		)
		return body
	}
	return decoded
}
