package gateway

import "net/url"

// DefaultDestination is the shared key for requests whose destination
// cannot be derived from the URL.
const DefaultDestination = "default"

// DestinationKey derives the circuit breaker and rate limiter key from a
// request URL. The key is the URL's host, including the port when one is
// present, so backends on different ports fail independently. Unparseable
// URLs and URLs without a host share DefaultDestination.
func DestinationKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return DefaultDestination
	}
	return u.Host
}
