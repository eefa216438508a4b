package personstore

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/purell"
)

// LocalURL builds the canonical profile URL for a local person name: <protocol>://<hostname>/u/<name>.
func LocalURL(name string, settings *Settings) (string, error) {
	raw := fmt.Sprintf("%s/u/%s", settings.ProtocolAndHostname(), name)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: no hostname in %q", ErrInvalidURL, raw)
	}
	return purell.NormalizeURL(u, purell.FlagsSafe), nil
}

func (s *Store) LocalURL(name string) (string, error) {
	return LocalURL(name, &s.Config.Settings)
}
