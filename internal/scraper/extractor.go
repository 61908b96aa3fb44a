package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/connpass-attendees/internal/attendee"
)

const (
	layoutLegacy = "legacy"
	layoutCard   = "card"

	legacyRowSelector    = ".applicant_area .participation_table_area .participants_table tbody tr"
	legacyNameSelector   = ".user .display_name a"
	legacySocialSelector = ".social a"

	cardSelector       = "div.user-profile-details"
	cardNameSelector   = "div.user-name"
	cardSocialSelector = "div.user-social a"
)

var titleSelectors = []string{".event_title", ".event-title"}

var (
	twitterScreenNamePattern = regexp.MustCompile(`[?&]screen_name=([^&#]+)`)
	twitterPathPattern       = regexp.MustCompile(`(?i)(?:^|//|\.)(?:twitter|x)\.com/([^/?#]+)`)
	facebookScopedPattern    = regexp.MustCompile(`app_scoped_user_id/([^/?#]*)`)
	facebookPathPattern      = regexp.MustCompile(`(?i)facebook\.com/([^/?#]+)`)
	facebookProfileIDPattern = regexp.MustCompile(`[?&]id=([^&#]+)`)
	githubPathPattern        = regexp.MustCompile(`(?i)github\.com/([^/?#]+)`)
)

// Path segments on twitter.com that are site pages rather than user handles
var twitterReservedPaths = map[string]bool{
	"intent":   true,
	"share":    true,
	"home":     true,
	"i":        true,
	"search":   true,
	"hashtag":  true,
	"settings": true,
}

// ExtractLegacyRow builds a profile from one row of the legacy participants table.
// The display name link is required; social links are optional.
func ExtractLegacyRow(row *goquery.Selection) (attendee.Profile, error) {
	name := row.Find(legacyNameSelector).First()
	if name.Length() == 0 {
		return attendee.Profile{}, &StructuralError{Layout: layoutLegacy, Selector: legacyNameSelector}
	}

	profile := attendee.NewProfile(strings.TrimSpace(name.Text()))
	return applyLinks(profile, row.Find(legacySocialSelector)), nil
}

// ExtractProfileCard builds a profile from one user-profile-details card
func ExtractProfileCard(card *goquery.Selection) (attendee.Profile, error) {
	name := card.Find(cardNameSelector).First()
	if name.Length() == 0 {
		return attendee.Profile{}, &StructuralError{Layout: layoutCard, Selector: cardNameSelector}
	}

	profile := attendee.NewProfile(strings.TrimSpace(name.Text()))
	return applyLinks(profile, card.Find(cardSocialSelector)), nil
}

// applyLinks folds every classifiable link into the profile. A later link for the
// same provider replaces an earlier one.
func applyLinks(profile attendee.Profile, links *goquery.Selection) attendee.Profile {
	links.Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok {
			return
		}
		if provider, handle, ok := classifyLink(href); ok {
			profile = profile.WithHandle(provider, handle)
		}
	})
	return profile
}

// classifyLink identifies which provider a social link points to and extracts the handle
// exactly as it appears in the href. Links to anything else report ok=false.
func classifyLink(href string) (provider attendee.Provider, handle string, ok bool) {
	href = strings.TrimSpace(href)

	if m := twitterScreenNamePattern.FindStringSubmatch(href); m != nil {
		return attendee.Twitter, m[1], true
	}
	if m := twitterPathPattern.FindStringSubmatch(href); m != nil {
		if twitterReservedPaths[strings.ToLower(m[1])] {
			return "", "", false
		}
		return attendee.Twitter, m[1], true
	}

	if m := facebookScopedPattern.FindStringSubmatch(href); m != nil {
		if m[1] == "" {
			return "", "", false
		}
		return attendee.Facebook, m[1], true
	}
	if m := facebookPathPattern.FindStringSubmatch(href); m != nil {
		if m[1] == "profile.php" {
			if id := facebookProfileIDPattern.FindStringSubmatch(href); id != nil {
				return attendee.Facebook, id[1], true
			}
			return "", "", false
		}
		return attendee.Facebook, m[1], true
	}

	if m := githubPathPattern.FindStringSubmatch(href); m != nil {
		return attendee.GitHub, m[1], true
	}

	return "", "", false
}

// extractTitle returns the text of the first title element, or "" if the page has none
func extractTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			return strings.TrimSpace(sel.Text())
		}
	}
	return ""
}

// extractProfiles maps every attendee node to a profile, in document order.
// Legacy table rows are tried first; profile cards are used only when the page has no rows.
func extractProfiles(doc *goquery.Document) ([]attendee.Profile, error) {
	nodes := doc.Find(legacyRowSelector)
	extract := ExtractLegacyRow
	if nodes.Length() == 0 {
		nodes = doc.Find(cardSelector)
		extract = ExtractProfileCard
	}

	profiles := make([]attendee.Profile, 0, nodes.Length())
	var extractErr error

	nodes.EachWithBreak(func(i int, node *goquery.Selection) bool {
		profile, err := extract(node)
		if err != nil {
			if se, ok := err.(*StructuralError); ok {
				se.Index = i
			}
			extractErr = err
			return false
		}
		profiles = append(profiles, profile)
		return true
	})

	if extractErr != nil {
		return nil, extractErr
	}
	return profiles, nil
}
