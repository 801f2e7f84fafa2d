package eventsocket

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/seu-repo/talkinator/internal/domain"
)

// Content types of the messages sent by the switch
const (
	contentCommandReply     = "command/reply"
	contentAPIResponse      = "api/response"
	contentEventPlain       = "text/event-plain"
	contentDisconnectNotice = "text/disconnect-notice"
)

const maxContentLength = 1 << 20

// message is one frame of the event socket: a header block optionally
// followed by Content-Length bytes of body.
type message struct {
	headers map[string]string
	body    []byte
}

func (m *message) contentType() string {
	return m.headers["Content-Type"]
}

// replyError returns the error carried by a command reply, if any
func (m *message) replyError() error {
	text := m.headers["Reply-Text"]
	if strings.HasPrefix(text, "-ERR") {
		return fmt.Errorf("command failed: %s", strings.TrimSpace(strings.TrimPrefix(text, "-ERR")))
	}
	return nil
}

func readMessage(r *bufio.Reader) (*message, error) {
	headers, err := readHeaders(r, false)
	if err != nil {
		return nil, err
	}

	msg := &message{headers: headers}
	body, err := readBody(r, headers)
	if err != nil {
		return nil, err
	}
	msg.body = body
	return msg, nil
}

func readBody(r *bufio.Reader, headers map[string]string) ([]byte, error) {
	raw, ok := headers["Content-Length"]
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxContentLength {
		return nil, fmt.Errorf("bad content length %q", raw)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// readHeaders reads "Key: Value" lines up to the blank line ending the block.
// Blank lines before the first header are skipped.
func readHeaders(r *bufio.Reader, decode bool) (map[string]string, error) {
	headers := make(map[string]string)
	for {
		line, err := r.ReadString('\n')
		eof := err == io.EOF
		if err != nil && !(eof && line != "") {
			if eof && len(headers) > 0 {
				return headers, nil
			}
			return nil, err
		}

		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(headers) == 0 && !eof {
				continue
			}
			if len(headers) == 0 {
				return nil, io.EOF
			}
			return headers, nil
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header line %q", line)
		}
		value = strings.TrimLeft(value, " ")
		if decode {
			if unescaped, err := url.QueryUnescape(value); err == nil {
				value = unescaped
			}
		}
		headers[key] = value
		if eof {
			return headers, nil
		}
	}
}

// parseEvent decodes the body of a text/event-plain message
func parseEvent(body []byte) (domain.ChannelEvent, error) {
	r := bufio.NewReader(bytes.NewReader(body))
	headers, err := readHeaders(r, true)
	if err != nil {
		return domain.ChannelEvent{}, fmt.Errorf("parse event: %w", err)
	}

	ev := domain.ChannelEvent{
		Name:    headers["Event-Name"],
		Headers: headers,
	}
	payload, err := readBody(r, headers)
	if err != nil {
		return domain.ChannelEvent{}, fmt.Errorf("parse event body: %w", err)
	}
	ev.Body = string(payload)
	return ev, nil
}

func decodeHeaders(headers map[string]string) map[string]string {
	decoded := make(map[string]string, len(headers))
	for k, v := range headers {
		if unescaped, err := url.QueryUnescape(v); err == nil {
			v = unescaped
		}
		decoded[k] = v
	}
	return decoded
}

// formatCommand renders a command and its headers as one frame
func formatCommand(command string, headers ...string) []byte {
	var b bytes.Buffer
	b.WriteString(command)
	b.WriteByte('\n')
	for i := 0; i+1 < len(headers); i += 2 {
		b.WriteString(headers[i])
		b.WriteString(": ")
		b.WriteString(sanitize(headers[i+1]))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

func sanitize(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
