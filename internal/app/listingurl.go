package app

import (
	"net/url"
	"regexp"
	"strings"

	"safestay/internal/domain"
)

var (
	airbnbRoomRe  = regexp.MustCompile(`^/rooms/(?:plus/)?(\d+)`)
	vrboUnitRe    = regexp.MustCompile(`^/(?:p)?(\d{6,})(?:[a-z]*)?$`)
	bookingSlugRe = regexp.MustCompile(`^/hotel/([a-z]{2})/([a-z0-9-]+?)(?:\.[a-z-]+)?\.html`)
)

// ParseListingURL resolves a short-term-rental listing URL into its source
// platform and the platform's listing identifier. Query strings, locale
// prefixes, and mobile subdomains are ignored.
func ParseListingURL(raw string) (domain.ListingRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return domain.ListingRef{}, domain.ErrUnknownListing
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	path := u.EscapedPath()

	switch {
	case host == "airbnb.com" || strings.HasSuffix(host, ".airbnb.com") || strings.HasPrefix(host, "airbnb."):
		if m := airbnbRoomRe.FindStringSubmatch(path); m != nil {
			return domain.ListingRef{Source: "airbnb", ExternalID: m[1]}, nil
		}

	case host == "booking.com" || strings.HasSuffix(host, ".booking.com"):
		// Strip a locale segment like /en-gb before the /hotel prefix.
		p := path
		if i := strings.Index(p, "/hotel/"); i > 0 {
			p = p[i:]
		}
		if m := bookingSlugRe.FindStringSubmatch(p); m != nil {
			return domain.ListingRef{Source: "booking", ExternalID: m[1] + "/" + m[2]}, nil
		}

	case host == "vrbo.com" || strings.HasSuffix(host, ".vrbo.com"):
		if m := vrboUnitRe.FindStringSubmatch(path); m != nil {
			return domain.ListingRef{Source: "vrbo", ExternalID: m[1]}, nil
		}
	}

	return domain.ListingRef{}, domain.ErrUnknownListing
}
