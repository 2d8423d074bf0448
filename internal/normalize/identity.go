package normalize

import "strconv"

// SentinelIdentity marks a customer code that could not be standardized.
// No real customer ever carries it.
const SentinelIdentity = "-1"

// Identity canonicalizes a customer code. Integers, floats and numeric
// strings are truncated to an integer and rendered in base 10, so 7, 7.0,
// "7", " 7.00 " and "7e0" all become "7". Anything else yields
// SentinelIdentity.
//
// Every load path must key customers through this function and nothing else.
func Identity(raw any) string {
	n, ok := truncateInteger(raw)
	if !ok {
		return SentinelIdentity
	}
	return strconv.FormatInt(n, 10)
}

// IsSentinel reports whether code is the sentinel identity.
func IsSentinel(code string) bool {
	return code == SentinelIdentity
}
