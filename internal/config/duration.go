package config

import (
	"fmt"
	"strings"
	"time"
)

// Duration fields (telegram.poll_timeout, database.busy_timeout,
// delivery.retry_base, delivery.send_timeout, janitor.keep_for,
// session.ttl) are Go duration strings. Empty means "use the default";
// negatives are always rejected.

// ParseDurationField parses one duration field. path is the dotted config
// location, used verbatim in error messages so a bad value in a hot reload
// points at the field that caused the rejection.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with the empty/zero case
// resolved to def. The composition root uses it to fold the Default*
// constants into omitted fields.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
