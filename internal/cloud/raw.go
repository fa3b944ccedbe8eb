// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"io"
)

// rawReadSize is the buffer size for one raw-mode body read.
const rawReadSize = 4 * 1024

// processRawStream reads the response body in byte chunks and delivers
// each one verbatim. There is no framing: whatever the server wrote is
// what the renderer gets, one poke per read.
func (c *Client) processRawStream(ctx context.Context, body io.Reader, callback StreamCallback) error {
	buf := make([]byte, rawReadSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			callback(StreamChunk{Raw: string(buf[:n])})
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
