package display

import (
	"encoding/base64"
	"fmt"
	"io"
)

// Kitty graphics protocol: base64 payload in escape-delimited chunks of at
// most 4096 bytes, m=1 marking continuation and m=0 the final chunk.
const (
	escapeStart = "\x1b_G"
	escapeEnd   = "\x1b\\"
	chunkSize   = 4096
)

func encodeKitty(out io.Writer, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	if len(encoded) <= chunkSize {
		_, err := fmt.Fprintf(out, "%sa=T,f=100,q=2;%s%s", escapeStart, encoded, escapeEnd)
		return err
	}

	for i := 0; len(encoded) > 0; i++ {
		n := chunkSize
		if len(encoded) < n {
			n = len(encoded)
		}
		chunk, rest := encoded[:n], encoded[n:]

		var params string
		switch {
		case i == 0:
			params = "a=T,f=100,q=2,m=1"
		case len(rest) == 0:
			params = "m=0"
		default:
			params = "m=1"
		}

		if _, err := fmt.Fprintf(out, "%s%s;%s%s", escapeStart, params, chunk, escapeEnd); err != nil {
			return err
		}
		encoded = rest
	}
	return nil
}
