// This file implements utilities for parsing and validating request data.

package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"spendly/internal/core"
)

const maxBodyBytes = 1 << 20

// MoneyInput accepts a JSON number or string and parses it as money.
// A null or absent value leaves Set false.
type MoneyInput struct {
	Value decimal.Decimal
	Set   bool
}

func (m *MoneyInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = MoneyInput{}
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return core.Invalid("Invalid amount")
		}
		raw = s
	}

	v, err := core.ParseMoney(raw)
	if err != nil {
		return err
	}
	m.Value = v
	m.Set = true
	return nil
}

// Ptr returns the parsed value or nil when absent.
func (m MoneyInput) Ptr() *decimal.Decimal {
	if !m.Set {
		return nil
	}
	v := m.Value
	return &v
}

// decodeJSON reads a JSON body into v. Malformed bodies and unknown fields
// are InvalidInput.
func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return core.Invalid("Could not read request body")
	}
	if len(body) > maxBodyBytes {
		return core.Invalid("Request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return core.Invalid("Request body is required")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var ce *core.Error
		if errors.As(err, &ce) {
			return err
		}
		return core.Invalid("Invalid request body: %s", jsonErrorMessage(err))
	}
	return nil
}

func jsonErrorMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && strings.HasPrefix(msg, "json: ") {
		return msg[i+2:]
	}
	return strings.TrimPrefix(msg, "json: ")
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	mediaType, _, _ := mime.ParseMediaType(p.contentType)
	if mediaType == "application/json" || trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(trimmed, &p.jsonData); err != nil {
			p.err = fmt.Errorf("invalid JSON body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	return sanitizeInput(p.Raw(key))
}

// Raw returns the value as sent. Used for secrets that must not be trimmed.
func (p *RequestBodyParser) Raw(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalid("Invalid subscription id '%s'", raw)
	}
	return id, nil
}

// sanitizeInput strips control characters and surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}
