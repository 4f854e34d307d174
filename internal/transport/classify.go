package transport

import (
	"mime"
	"net/http"
	"strings"
)

// Kind selects how a successful response body is consumed
type Kind int

const (
	// Buffered bodies are read whole and appended as one finished message
	Buffered Kind = iota
	// Streaming bodies are read chunk by chunk into a growing placeholder
	Streaming
)

func (k Kind) String() string {
	if k == Streaming {
		return "streaming"
	}
	return "buffered"
}

// Classify picks the handling path for resp. A response streams when it has
// a readable body and declares a textual media type; anything else,
// including a missing or malformed Content-Type, is buffered.
func Classify(resp *http.Response) Kind {
	if resp == nil || resp.Body == nil || resp.Body == http.NoBody {
		return Buffered
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return Buffered
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return Buffered
	}

	if strings.HasPrefix(mediaType, "text/") {
		return Streaming
	}
	return Buffered
}
