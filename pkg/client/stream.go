package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/andrewsamuelsen/bowen/pkg/models"
)

const chatPath = "/api/chat"

// Stream returns the completion of req as text fragments. Every range over
// the sequence sends the request again. Newlines in fragments are doubled so
// single line breaks render as paragraphs. A non-2xx reply yields one
// *StatusError.
func (c *Client) Stream(ctx context.Context, req models.ChatRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		resp, err := c.do(ctx, http.MethodPost, chatPath, req)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()
		for frag, err := range readText(resp.Body) {
			if err != nil {
				yield("", fmt.Errorf("read stream: %w", err))
				return
			}
			if !yield(strings.ReplaceAll(frag, "\n", "\n\n"), nil) {
				return
			}
		}
	}
}

// Collect concatenates a whole sequence.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for frag, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(frag)
	}
	return b.String(), nil
}

// complete sends req and returns the raw body without any rewriting.
func (c *Client) complete(ctx context.Context, req models.ChatRequest) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, chatPath, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return string(b), fmt.Errorf("read completion: %w", err)
	}
	return string(b), nil
}

// readText yields the body as it arrives, never splitting a UTF-8 sequence
// across fragments.
func readText(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		buf := make([]byte, 4096)
		var carry []byte
		for {
			n, err := r.Read(buf)
			if n > 0 {
				data := append(carry, buf[:n]...)
				cut := completePrefix(data)
				carry = append([]byte(nil), data[cut:]...)
				if cut > 0 && !yield(string(data[:cut]), nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				if len(carry) > 0 {
					yield(string(carry), nil)
				}
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte rune.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}

// IsHighDemand reports whether err is the upstream overload reply.
func IsHighDemand(err error) bool {
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusServiceUnavailable {
		return true
	}
	return err != nil && (strings.Contains(err.Error(), "high demand") || strings.Contains(err.Error(), "503"))
}
