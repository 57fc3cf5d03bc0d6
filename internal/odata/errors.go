// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package odata

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
)

// ErrorPayload is the service error body reduced to what callers need.
type ErrorPayload struct {
	Code    string
	Message string
	Lang    string
}

// errorMessage accepts {"lang": "...", "value": "..."} or a bare string.
type errorMessage struct {
	Lang  string
	Value string
}

func (m *errorMessage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		return json.Unmarshal(b, &m.Value)
	}
	var obj struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	m.Lang, m.Value = obj.Lang, obj.Value
	return nil
}

type errorBody struct {
	Code    string       `json:"code"`
	Message errorMessage `json:"message"`
}

// xmlError is the Atom/XML error shape some gateways still return.
type xmlError struct {
	XMLName xml.Name `xml:"error"`
	Code    string   `xml:"code"`
	Message string   `xml:"message"`
}

// ParseError extracts the code and message from an OData error body in
// JSON light ("odata.error"), verbose ("error") or XML form. ok is false
// when the body is not an error payload.
func ParseError(body []byte) (ErrorPayload, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ErrorPayload{}, false
	}

	if body[0] == '<' {
		var xe xmlError
		if err := xml.Unmarshal(body, &xe); err != nil || (xe.Code == "" && xe.Message == "") {
			return ErrorPayload{}, false
		}
		return ErrorPayload{Code: xe.Code, Message: strings.TrimSpace(xe.Message)}, true
	}

	var envelope struct {
		Light   *errorBody `json:"odata.error"`
		Verbose *errorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ErrorPayload{}, false
	}
	eb := envelope.Light
	if eb == nil {
		eb = envelope.Verbose
	}
	if eb == nil {
		return ErrorPayload{}, false
	}
	return ErrorPayload{Code: eb.Code, Message: eb.Message.Value, Lang: eb.Message.Lang}, true
}
