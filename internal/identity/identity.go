// Package identity derives the name variants used to find a company's own
// advertising from its website locator.
package identity

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/outreach-research/internal/model"
)

// MaxVariants caps the number of search variants per target.
const MaxVariants = 5

// ErrInvalidLocator is returned when no host label can be found.
var ErrInvalidLocator = eris.New("identity: invalid locator")

var strippedPrefixes = []string{"www.", "shop.", "store."}

// genericAdvertisers are page names that commonly collide with small brand
// searches in the ads archive.
var genericAdvertisers = []string{
	"muscle booster",
	"fitness pal",
	"freeletics",
	"nike training",
	"adidas training",
	"7 minute workout",
	"workout app",
	"fitness app",
	"calorie counter",
	"weight loss",
	"diet app",
	"nutrition app",
}

// Extract builds the IdentityProfile for a locator.
func Extract(locator string) (model.IdentityProfile, error) {
	host := Host(locator)
	if host == "" {
		return model.IdentityProfile{}, eris.Wrapf(ErrInvalidLocator, "locator %q", locator)
	}

	base := host
	if i := strings.IndexByte(host, '.'); i >= 0 {
		base = host[:i]
	}
	base = strings.Trim(base, "-")
	if base == "" {
		return model.IdentityProfile{}, eris.Wrapf(ErrInvalidLocator, "locator %q", locator)
	}

	return model.IdentityProfile{
		Domain:   host,
		BaseName: base,
		Variants: Variants(base),
		Denylist: denylistFor(base),
	}, nil
}

// Host normalises a locator to its lowercase host without the common shop
// and www prefixes. It returns "" when nothing host-like remains.
func Host(locator string) string {
	s := strings.TrimSpace(locator)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	var host string
	if u, err := url.Parse(s); err == nil {
		host = u.Hostname()
	} else {
		// Best effort for inputs url.Parse rejects (stray spaces, bad escapes).
		rest := s[strings.Index(s, "://")+3:]
		if i := strings.IndexAny(rest, "/?#"); i >= 0 {
			rest = rest[:i]
		}
		if i := strings.LastIndexByte(rest, '@'); i >= 0 {
			rest = rest[i+1:]
		}
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			rest = rest[:i]
		}
		host = rest
	}

	host = strings.Trim(strings.ToLower(host), ". ")
	for stripped := true; stripped; {
		stripped = false
		for _, p := range strippedPrefixes {
			if strings.HasPrefix(host, p) && len(host) > len(p) {
				host = host[len(p):]
				stripped = true
			}
		}
	}
	return host
}

// Variants returns up to MaxVariants search terms for base, in priority order.
func Variants(base string) []string {
	spaced := strings.ReplaceAll(base, "-", " ")
	compact := strings.ReplaceAll(base, "-", "")
	head := base
	if i := strings.IndexByte(base, '-'); i > 0 {
		head = base[:i]
	}

	title := cases.Title(language.Und)
	candidates := []string{
		base,
		spaced,
		compact,
		head,
		title.String(spaced),
		title.String(compact),
		title.String(head),
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, MaxVariants)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if utf8.RuneCountInString(c) <= 2 || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == MaxVariants {
			break
		}
	}
	return out
}

// NameForms returns the lowercase spellings of base that count as a name match.
func NameForms(base string) []string {
	b := strings.ToLower(base)
	forms := []string{b}
	if strings.Contains(b, "-") {
		forms = append(forms, strings.ReplaceAll(b, "-", " "), strings.ReplaceAll(b, "-", ""))
	}
	return forms
}

// denylistFor drops generic names that overlap the target's own name, so a
// brand called "freeletics" is never penalised for being itself.
func denylistFor(base string) []string {
	forms := NameForms(base)
	out := make([]string, 0, len(genericAdvertisers))
	for _, d := range genericAdvertisers {
		overlap := false
		for _, f := range forms {
			if strings.Contains(d, f) || strings.Contains(f, d) {
				overlap = true
				break
			}
		}
		if !overlap {
			out = append(out, d)
		}
	}
	return out
}
