// Package identify holds the request model and validation policy of the
// identify endpoint. Matching and merging happen in the database; nothing in
// this module interprets the resolver's result.
package identify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	dErrors "identity-gateway/pkg/domain-errors"
)

// Policy decides which identifiers a request must carry.
type Policy string

const (
	// PolicyBoth requires email and phoneNumber.
	PolicyBoth Policy = "both"
	// PolicyAny requires at least one of them.
	PolicyAny Policy = "any"
)

const (
	MsgBothRequired = "Email and phoneNumber are required"
	MsgOneRequired  = "Email or phoneNumber is required"
)

// Identifier is an email or phone number as sent by the client. JSON strings
// and numbers are accepted; numbers keep their literal text. null, false, 0
// and "" decode to the empty Identifier, which counts as absent.
type Identifier string

// UnmarshalJSON implements json.Unmarshaler.
func (id *Identifier) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0:
		return fmt.Errorf("identifier: empty value")
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*id = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = Identifier(s)
		return nil
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		if f, err := n.Float64(); err == nil && f == 0 {
			*id = ""
			return nil
		}
		*id = Identifier(n.String())
		return nil
	default:
		return fmt.Errorf("identifier: unsupported JSON value %s", strconv.Quote(string(data)))
	}
}

// Present reports whether the identifier was supplied.
func (id Identifier) Present() bool {
	return id != ""
}

// Request is the POST /identify body.
type Request struct {
	Email       Identifier `json:"email"`
	PhoneNumber Identifier `json:"phoneNumber"`
}

// Validate applies policy. The returned error is a CodeValidation domain
// error whose message is returned to the client verbatim.
func (r Request) Validate(policy Policy) error {
	switch policy {
	case PolicyAny:
		if !r.Email.Present() && !r.PhoneNumber.Present() {
			return dErrors.New(dErrors.CodeValidation, MsgOneRequired)
		}
	default:
		if !r.Email.Present() || !r.PhoneNumber.Present() {
			return dErrors.New(dErrors.CodeValidation, MsgBothRequired)
		}
	}
	return nil
}
