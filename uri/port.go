package uri

// WellKnownPort returns the default port of scheme, or 0 if it has none.
func WellKnownPort(scheme string) uint16 {
	switch scheme {
	case "ftp":
		return 21
	case "ssh":
		return 22
	case "telnet":
		return 23
	case "http", "ws":
		return 80
	case "nntp":
		return 119
	case "ldap":
		return 389
	case "https", "wss":
		return 443
	case "rtsp":
		return 554
	case "sip":
		return 5060
	case "sips":
		return 5061
	case "xmpp":
		return 5222
	}
	return 0
}

// WellKnownPort returns the default port of u's scheme.
func (u URI) WellKnownPort() uint16 { return WellKnownPort(u.scheme) }
