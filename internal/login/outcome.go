package login

import (
	"encoding/json"
	"fmt"
	"sort"
)

// OutcomeKind classifies a login endpoint response.
type OutcomeKind int

const (
	// OutcomeSuccess carries a session token.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeInvalidCredentials means the server rejected the email or password.
	OutcomeInvalidCredentials
	// OutcomeCaptchaRequired means the server wants an interactive challenge.
	OutcomeCaptchaRequired
	// OutcomeProtocolError means the body was an object of unknown shape.
	OutcomeProtocolError
	// OutcomeTransportError means the body was not a JSON object at all.
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeCaptchaRequired:
		return "captcha_required"
	case OutcomeProtocolError:
		return "protocol_error"
	case OutcomeTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Outcome is the classified result of one submission.
type Outcome struct {
	Kind   OutcomeKind
	Token  string
	Detail string
}

// Classify inspects a login response body. Field presence is checked in
// order: captcha_key, token, errors.
func Classify(body []byte) Outcome {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		detail := "response is not a JSON object"
		if err != nil {
			detail = err.Error()
		}
		return Outcome{Kind: OutcomeTransportError, Detail: detail}
	}
	if _, ok := fields["captcha_key"]; ok {
		return Outcome{Kind: OutcomeCaptchaRequired}
	}
	if raw, ok := fields["token"]; ok {
		var token string
		if err := json.Unmarshal(raw, &token); err != nil || isNull(raw) {
			return Outcome{Kind: OutcomeProtocolError, Detail: "token is not a string"}
		}
		return Outcome{Kind: OutcomeSuccess, Token: token}
	}
	if raw, ok := fields["errors"]; ok {
		detail := firstMessage(raw)
		if detail == "" {
			detail = stringField(fields, "message")
		}
		return Outcome{Kind: OutcomeInvalidCredentials, Detail: detail}
	}
	detail := stringField(fields, "message")
	if detail == "" {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		detail = fmt.Sprintf("unrecognised response fields %v", keys)
	}
	return Outcome{Kind: OutcomeProtocolError, Detail: detail}
}

func isNull(raw json.RawMessage) bool {
	return string(raw) == "null"
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// firstMessage finds the first "message" string in a nested error tree,
// walking object keys in sorted order.
func firstMessage(raw json.RawMessage) string {
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return ""
	}
	return walkMessage(tree)
}

func walkMessage(node any) string {
	switch v := node.(type) {
	case string:
		return v
	case []any:
		for _, item := range v {
			if msg := walkMessage(item); msg != "" {
				return msg
			}
		}
	case map[string]any:
		if msg, ok := v["message"].(string); ok && msg != "" {
			return msg
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if k == "code" {
				continue
			}
			if msg := walkMessage(v[k]); msg != "" {
				return msg
			}
		}
	}
	return ""
}
