package auth

import (
	"context"
	"maps"
)

// StaticSource serves cookies handed in by the caller, typically through
// a WithCookies option.
type StaticSource struct {
	cookies map[string]string
}

// NewStaticSource wraps a caller-supplied cookie map.
func NewStaticSource(cookies map[string]string) *StaticSource {
	return &StaticSource{cookies: cookies}
}

// Cookies returns a copy of the static cookies, so callers cannot mutate
// the source through the returned map.
func (s *StaticSource) Cookies(_ context.Context) (map[string]string, error) {
	if len(s.cookies) == 0 {
		return nil, nil //nolint:nilnil // an empty source is not an error
	}
	return maps.Clone(s.cookies), nil
}
