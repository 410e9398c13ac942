package ikawa

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/chaz8081/ikawa-ble/internal/ikawapb"
)

// ProfileURLBase is the share link prefix the roaster's app understands.
const ProfileURLBase = "https://share.ikawa.support/profile_home/?"

// ProfileToURL returns a share link carrying the base64-encoded profile.
func ProfileToURL(p *ikawapb.RoastProfile) string {
	return ProfileURLBase + base64.StdEncoding.EncodeToString(p.Marshal())
}

// ProfileFromURL parses a profile from a share link, or from the bare base64
// string when s has no '?'.
func ProfileFromURL(s string) (*ikawapb.RoastProfile, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '?'); i >= 0 {
		s = s[i+1:]
	}
	// Links pasted from a browser may arrive percent-encoded.
	if strings.Contains(s, "%") {
		unescaped, err := url.PathUnescape(s)
		if err != nil {
			return nil, fmt.Errorf("ikawa: profile url: %w", err)
		}
		s = unescaped
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("ikawa: profile url: decode base64: %w", err)
	}
	p, err := ikawapb.UnmarshalRoastProfile(raw)
	if err != nil {
		return nil, fmt.Errorf("ikawa: profile url: %w", err)
	}
	return p, nil
}
