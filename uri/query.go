package uri

import (
	"strings"
)

// Param is one name/value pair of a query string.
type Param struct {
	Name  string
	Value string
}

// QueryParameters splits the raw query on '&' and '=', turns '+' into a
// space and percent-decodes both halves. Order and duplicates are preserved.
func (u URI) QueryParameters() ([]Param, error) {
	return ParseQuery(u.query)
}

// ParseQuery decodes a raw query string the way QueryParameters does.
func ParseQuery(query string) ([]Param, error) {
	var params []Param
	for query != "" {
		var pair string
		if amp := strings.IndexByte(query, '&'); amp >= 0 {
			pair, query = query[:amp], query[amp+1:]
		} else {
			pair, query = query, ""
		}

		name, value, _ := strings.Cut(pair, "=")
		var err error
		if name, err = Decode(name, true); err != nil {
			return nil, err
		}
		if value, err = Decode(value, true); err != nil {
			return nil, err
		}
		params = append(params, Param{Name: name, Value: value})
	}
	return params, nil
}

// SetQueryParameters replaces the query with the encoding of params.
func (u *URI) SetQueryParameters(params []Param) {
	u.query = ""
	for _, p := range params {
		u.AddQueryParameter(p.Name, p.Value)
	}
}

// AddQueryParameter appends name=value to the query, encoding both halves.
func (u *URI) AddQueryParameter(name, value string) {
	b := make([]byte, 0, len(u.query)+len(name)+len(value)+2)
	b = append(b, u.query...)
	if len(b) > 0 {
		b = append(b, '&')
	}
	b = AppendEncode(b, name, ReservedQueryParam, true)
	b = append(b, '=')
	b = AppendEncode(b, value, ReservedQueryParam, true)
	u.query = string(b)
}
