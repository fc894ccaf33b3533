package pressroom

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// stringList decodes either a JSON array of strings or a single
// comma-separated string into a []string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var vals []string
		if err := json.Unmarshal(data, &vals); err != nil {
			return err
		}
		*l = vals
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

// boolFlag decodes a JSON bool as well as the checkbox-ish strings the admin
// form historically sent: "true", "on" and "1".
type boolFlag bool

func (b *boolFlag) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", `"true"`, `"on"`, `"1"`:
		*b = true
	default:
		*b = false
	}
	return nil
}

// BuildURL joins a base URL with path segments.
func BuildURL(base string, segments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(segments...))
	return u.String()
}
