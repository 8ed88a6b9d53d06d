package proxy

// StatusHeader is the response header carrying the cache status.
const StatusHeader = "Cacher-Status"

// Status is the cache status reported to clients.
type Status string

const (
	// StatusHit marks a response served from the store.
	StatusHit Status = "HIT"

	// StatusMiss marks a response fetched from the origin and stored.
	StatusMiss Status = "MISS"

	// StatusDynamic marks a response relayed without store involvement.
	StatusDynamic Status = "DYNAMIC"
)

// statusError labels metrics of requests that ended in an error response.
const statusError = "ERROR"
