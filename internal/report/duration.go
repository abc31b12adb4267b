package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Duration is a suspension length. In JSON it is either a Go duration string
// ("36h"), a whole number of days with a "d" suffix ("7d"), or a bare number
// of days (7).
type Duration time.Duration

// MaxDays is the longest suspension, in days, that fits in a time.Duration.
const MaxDays = math.MaxInt64 / int64(24*time.Hour)

// ParseDuration parses the string forms accepted by Duration.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		if n > MaxDays || n < -MaxDays {
			return 0, fmt.Errorf("duration %q exceeds %d days", s, MaxDays)
		}
		return Duration(time.Duration(n) * 24 * time.Hour), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return Duration(d), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseDuration(s)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		*d = v
		return nil
	}
	var days float64
	if err := json.Unmarshal(b, &days); err != nil {
		return fmt.Errorf("%w: suspensionDuration must be a string or a number of days", ErrInvalid)
	}
	if math.IsNaN(days) || math.Abs(days) > float64(MaxDays) {
		return fmt.Errorf("%w: suspensionDuration exceeds %d days", ErrInvalid, MaxDays)
	}
	*d = Duration(time.Duration(days * float64(24*time.Hour)))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
