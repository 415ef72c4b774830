package viewmodel

import (
	"encoding/json"
	"fmt"
)

// Kind tags a Recipient as a channel or a user.
type Kind int

const (
	KindChannel Kind = iota
	KindUser
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	default:
		return "channel"
	}
}

// Prefix is the display sigil: # for channels, @ for users.
func (k Kind) Prefix() string {
	switch k {
	case KindUser:
		return "@"
	default:
		return "#"
	}
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "channel", "":
		return KindChannel, nil
	case "user":
		return KindUser, nil
	}
	return KindChannel, fmt.Errorf("unknown recipient kind %q", s)
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type Recipient struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Label renders the recipient as #name or @name.
func (r Recipient) Label() string {
	return r.Kind.Prefix() + r.Name
}

type recipientSource struct {
	ID   text `json:"id"`
	Name text `json:"name"`
}

// Recipients merges the channels array (tagged channel) followed by the users
// array (tagged user). A missing or malformed array contributes nothing.
func Recipients(raw []byte) []Recipient {
	out := []Recipient{}
	for _, group := range []struct {
		key  string
		kind Kind
	}{{"channels", KindChannel}, {"users", KindUser}} {
		for _, item := range objects(raw, group.key) {
			src, ok := sourceFields[recipientSource](item)
			if !ok {
				continue
			}
			out = append(out, Recipient{ID: string(src.ID), Name: string(src.Name), Kind: group.kind})
		}
	}
	return out
}

// DefaultRecipient is the first recipient, if any.
func DefaultRecipient(rs []Recipient) (Recipient, bool) {
	if len(rs) == 0 {
		return Recipient{}, false
	}
	return rs[0], true
}

// FindRecipient looks a recipient up by id.
func FindRecipient(rs []Recipient, id string) (Recipient, bool) {
	for _, r := range rs {
		if r.ID == id {
			return r, true
		}
	}
	return Recipient{}, false
}
