package ioutil

import (
	"fmt"
	"io"
)

// ReadLimited drains at most limit bytes from r into a string. A read
// failure is folded into the returned string, so the result can go
// straight into a log field or error message.
func ReadLimited(r io.Reader, limit int64) string {
	buf, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return string(buf)
}
