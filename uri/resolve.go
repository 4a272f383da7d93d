package uri

// Resolve resolves the reference rel against u in place.
//
// A reference with a scheme replaces everything but the fragment source; one
// with a host keeps u's scheme only. Otherwise an absolute path replaces u's
// path and a relative path is merged with u's directory. The fragment always
// comes from rel.
func (u *URI) Resolve(rel URI) {
	switch {
	case rel.scheme != "":
		u.scheme = rel.scheme
		u.userInfo, u.host, u.port = rel.userInfo, rel.host, rel.port
		u.path, u.query = rel.path, rel.query
		u.removeDotSegments(true)
	case rel.host != "":
		u.userInfo, u.host, u.port = rel.userInfo, rel.host, rel.port
		u.path, u.query = rel.path, rel.query
		u.removeDotSegments(true)
	case rel.path == "":
		if rel.query != "" {
			u.query = rel.query
		}
	default:
		if rel.path[0] == '/' {
			u.path = rel.path
			u.removeDotSegments(true)
		} else {
			u.mergePath(rel.path)
		}
		u.query = rel.query
	}
	u.fragment = rel.fragment
}

// ResolveString parses rel and resolves it against u.
func (u *URI) ResolveString(rel string) error {
	r, err := Parse(rel)
	if err != nil {
		return err
	}
	u.Resolve(r)
	return nil
}

// ResolveReference returns rel resolved against base. Neither argument is modified.
func ResolveReference(base, rel URI) URI {
	base.Resolve(rel)
	return base
}

// Normalize removes "." and ".." segments from the path. Leading ".."
// segments are dropped from absolute URIs and kept in relative ones.
func (u *URI) Normalize() {
	u.removeDotSegments(!u.IsRelative())
}

func (u *URI) removeDotSegments(removeLeading bool) {
	if u.path == "" {
		return
	}
	leadingSlash := u.path[0] == '/'
	trailingSlash := u.path[len(u.path)-1] == '/'

	var normalized []string
	for _, s := range splitSegments(u.path, nil) {
		switch s {
		case ".":
		case "..":
			switch {
			case len(normalized) > 0 && normalized[len(normalized)-1] != "..":
				normalized = normalized[:len(normalized)-1]
			case len(normalized) > 0, !removeLeading:
				normalized = append(normalized, s)
			}
		default:
			normalized = append(normalized, s)
		}
	}
	u.buildPath(normalized, leadingSlash, trailingSlash)
}

func (u *URI) mergePath(path string) {
	var segments []string
	addLeadingSlash := false
	if u.path != "" {
		segments = splitSegments(u.path, segments)
		if u.path[len(u.path)-1] != '/' && len(segments) > 0 {
			segments = segments[:len(segments)-1]
		}
		addLeadingSlash = u.path[0] == '/'
	}
	segments = splitSegments(path, segments)
	addLeadingSlash = addLeadingSlash || path != "" && path[0] == '/'
	hasTrailingSlash := path != "" && path[len(path)-1] == '/'

	addTrailingSlash := false
	normalized := make([]string, 0, len(segments))
	for _, s := range segments {
		switch s {
		case "..":
			addTrailingSlash = true
			if len(normalized) > 0 {
				normalized = normalized[:len(normalized)-1]
			}
		case ".":
			addTrailingSlash = true
		default:
			addTrailingSlash = false
			normalized = append(normalized, s)
		}
	}
	u.buildPath(normalized, addLeadingSlash, hasTrailingSlash || addTrailingSlash)
}

func (u *URI) buildPath(segments []string, leadingSlash, trailingSlash bool) {
	var b []byte
	for i, s := range segments {
		if i == 0 {
			if leadingSlash {
				b = append(b, '/')
			} else if u.scheme == "" && containsByte(s, ':') {
				// a first segment with a colon would read back as a scheme
				b = append(b, "./"...)
			}
		} else {
			b = append(b, '/')
		}
		b = append(b, s...)
	}
	if trailingSlash {
		b = append(b, '/')
	}
	u.path = string(b)
}

func containsByte(s string, c byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return true
		}
	}
	return false
}
