package raffleservice

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

// ErrInvalidSince is returned when a history filter cannot be understood.
var ErrInvalidSince = errors.New("unrecognized since value")

// ParseSince turns a history filter into an instant. It accepts RFC 3339 and
// English phrases such as "yesterday". Empty input means no
// lower bound.
func ParseSince(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)

	r, err := w.Parse(strings.ToLower(input), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidSince, input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSince, input)
	}
	if r.Time.After(now) {
		return time.Time{}, fmt.Errorf("%w: %q is in the future", ErrInvalidSince, input)
	}
	return r.Time, nil
}
