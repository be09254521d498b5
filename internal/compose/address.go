package compose

import (
	"fmt"
	"strings"

	"github.com/emersion/go-message/mail"
)

// AddressError reports a header whose value is not a valid address list.
type AddressError struct {
	Field string
	Value string
	Err   error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid %s address %q: %v", e.Field, e.Value, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

func parseAddress(field, value string) (*mail.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return nil, &AddressError{Field: field, Value: value, Err: err}
	}
	return addr, nil
}

func parseAddressList(field, value string) ([]*mail.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	addrs, err := mail.ParseAddressList(value)
	if err != nil {
		return nil, &AddressError{Field: field, Value: value, Err: err}
	}
	return addrs, nil
}

// ParseAddressList parses a header value into plain addresses.
func ParseAddressList(field, value string) ([]string, error) {
	addrs, err := parseAddressList(field, value)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out, nil
}

func listOf(addr *mail.Address) []*mail.Address {
	if addr == nil {
		return nil
	}
	return []*mail.Address{addr}
}

func addressOf(addr *mail.Address) string {
	if addr == nil {
		return ""
	}
	return addr.Address
}

func recipients(lists ...[]*mail.Address) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range lists {
		for _, a := range list {
			key := strings.ToLower(a.Address)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a.Address)
		}
	}
	return out
}
