package lore

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/encoding/ianaindex"
)

// Email is one parsed archive message.
type Email struct {
	Headers     map[string]string
	Body        string
	MessageID   string
	InReplyTo   string
	References  []string
	Subject     string
	AuthorName  string
	AuthorEmail string
	Date        time.Time // zero when the Date header is missing or unparseable
}

var messageIDPattern = regexp.MustCompile(`<([^<>@\s]+@[^<>@\s]+)>`)
var authorEmailPattern = regexp.MustCompile(`<([^<>]+)>`)

// extractMessageID returns the first angle-bracket-delimited local@domain
// token in the header value, or "" when there is none.
func extractMessageID(value string) string {
	match := messageIDPattern.FindStringSubmatch(value)
	if match == nil {
		return ""
	}
	return match[1]
}

// extractReferences returns every message id mentioned in a References
// header, in order.
func extractReferences(value string) []string {
	matches := messageIDPattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]string, 0, len(matches))
	for _, match := range matches {
		refs = append(refs, match[1])
	}
	return refs
}

// ParseEmail parses a raw RFC-5322 message. Decoding is best-effort:
// undecodable bytes are replaced, never raised.
func ParseEmail(raw []byte) (*Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}

	headers := make(map[string]string, len(msg.Header))
	for key, values := range msg.Header {
		if len(values) > 0 {
			headers[strings.ToLower(key)] = values[0]
		}
	}

	email := &Email{
		Headers:    headers,
		MessageID:  extractMessageID(headers["message-id"]),
		InReplyTo:  extractMessageID(headers["in-reply-to"]),
		References: extractReferences(headers["references"]),
	}

	email.Body = extractBody(headers, msg.Body)
	email.Subject = normalizeSubject(headers["subject"])
	email.AuthorName, email.AuthorEmail = parseAuthor(decodeHeader(headers["from"]))

	if date, err := msg.Header.Date(); err == nil {
		email.Date = date
	} else if value := headers["date"]; value != "" {
		if date, err := dateparse.ParseAny(value); err == nil {
			email.Date = date
		}
	}

	return email, nil
}

// normalizeSubject decodes MIME words and strips a single leading "Re: ".
// Repeated prefixes are left alone.
func normalizeSubject(value string) string {
	subject := strings.TrimSpace(decodeHeader(value))
	return strings.TrimPrefix(subject, "Re: ")
}

// parseAuthor splits a From header into display name and address. Without
// an angle-bracket address the whole header value becomes the name.
func parseAuthor(value string) (name, email string) {
	name = strings.TrimSpace(value)

	match := authorEmailPattern.FindStringSubmatch(value)
	if match == nil {
		return name, ""
	}

	email = match[1]
	if namePart := strings.TrimSpace(strings.SplitN(value, "<", 2)[0]); namePart != "" {
		name = strings.Trim(namePart, `" `)
	}

	return name, email
}

var headerDecoder = mime.WordDecoder{
	CharsetReader: charsetReader,
}

func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// extractBody returns the first text/plain part of a depth-first walk for
// multipart messages, or the single decoded payload otherwise.
func extractBody(headers map[string]string, body io.Reader) string {
	mediaType, params, err := mime.ParseMediaType(headers["content-type"])
	if err != nil {
		mediaType = "text/plain"
		params = nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if text, ok := walkMultipart(body, params["boundary"]); ok {
			return text
		}
		return ""
	}

	return decodePayload(body, headers["content-transfer-encoding"], params["charset"])
}

func walkMultipart(body io.Reader, boundary string) (string, bool) {
	if boundary == "" {
		return "", false
	}

	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err != nil {
			return "", false
		}

		mediaType, params, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			continue
		}

		if mediaType == "text/plain" {
			return decodePayload(part, part.Header.Get("Content-Transfer-Encoding"), params["charset"]), true
		}

		if strings.HasPrefix(mediaType, "multipart/") {
			if text, ok := walkMultipart(part, params["boundary"]); ok {
				return text, true
			}
		}
	}
}

// decodePayload reverses the transfer encoding and converts the charset to
// UTF-8, substituting replacement characters for anything undecodable.
func decodePayload(r io.Reader, transferEncoding, charset string) string {
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		// Keep whatever was readable before the failure
		if len(data) == 0 {
			return ""
		}
	}

	return toUTF8(data, charset)
}

func toUTF8(data []byte, charset string) string {
	if charset != "" && !strings.EqualFold(charset, "utf-8") && !strings.EqualFold(charset, "us-ascii") {
		if enc, err := ianaindex.MIME.Encoding(charset); err == nil && enc != nil {
			if converted, err := enc.NewDecoder().Bytes(data); err == nil {
				data = converted
			}
		}
	}

	return string(bytes.ToValidUTF8(data, []byte("�")))
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.MIME.Encoding(charset)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset: %s", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}
