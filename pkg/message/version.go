package message

// Supported protocol version strings.
const (
	HTTP09 = "HTTP/0.9"
	HTTP10 = "HTTP/1.0"
	HTTP11 = "HTTP/1.1"
	HTTP2  = "HTTP/2"
	HTTP3  = "HTTP/3"
)

// VersionString maps a protocol major/minor pair to its textual form.
// Unknown versions map to HTTP/1.1.
func VersionString(major, minor int) string {
	switch {
	case major == 0 && minor == 9:
		return HTTP09
	case major == 1 && minor == 0:
		return HTTP10
	case major == 1 && minor == 1:
		return HTTP11
	case major == 2:
		return HTTP2
	case major == 3:
		return HTTP3
	default:
		return HTTP11
	}
}

// ParseVersion is the inverse of VersionString. Unknown text maps to 1.1.
func ParseVersion(v string) (major, minor int) {
	switch v {
	case HTTP09:
		return 0, 9
	case HTTP10:
		return 1, 0
	case HTTP2, "HTTP/2.0":
		return 2, 0
	case HTTP3, "HTTP/3.0":
		return 3, 0
	default:
		return 1, 1
	}
}
