package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pixivdl/internal/artwork"
	"pixivdl/internal/config"
)

// Rejection reasons reported in Verdict.Reason.
const (
	ReasonAIGenerated = "ai_generated"
	ReasonOlder       = "older"
	ReasonMember      = "member"
	ReasonTag         = "tag"
	ReasonR18G        = "r18g"
	ReasonR18         = "r18"
	ReasonTitle       = "title"
	ReasonExtension   = "extension"
	ReasonBookmarks   = "bookmarks"
)

// R-18 policy values.
const (
	R18Any      = 0
	R18SkipR18G = 1
	R18SkipR18  = 2
)

// Policy is the configured part of the filter rules.
type Policy struct {
	AIDisplayFewer      bool
	DateDiff            int
	R18Type             int
	UseBlacklistMembers bool
	UseBlacklistTags    bool
	UseBlacklistTitles  bool
	UseTitlesRegex      bool
	ExtensionFilter     string
}

// PolicyFromConfig extracts the filter policy from a loaded configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		AIDisplayFewer:      cfg.Filters.AIDisplayFewer,
		DateDiff:            cfg.Filters.DateDiff,
		R18Type:             cfg.Filters.R18Type,
		UseBlacklistMembers: cfg.Filters.UseBlacklistMembers,
		UseBlacklistTags:    cfg.Filters.UseBlacklistTags,
		UseBlacklistTitles:  cfg.Filters.UseBlacklistTitles,
		UseTitlesRegex:      cfg.Filters.UseBlacklistTitlesRegex,
		ExtensionFilter:     cfg.Filters.ExtensionFilter,
	}
}

// Options carries per-call settings.
type Options struct {
	// UseBlacklist enables the member, tag, R-18 and title checks.
	UseBlacklist bool
	// MinBookmarks rejects works with fewer bookmarks; negative disables.
	MinBookmarks int
	// ExtensionFilter overrides Policy.ExtensionFilter when non-nil.
	ExtensionFilter *string
	// Now is the reference time for the age rule; zero means time.Now.
	Now time.Time
}

// DefaultOptions returns options for a regular download with blacklists enabled.
func DefaultOptions() Options {
	return Options{UseBlacklist: true, MinBookmarks: -1}
}

// Verdict is the filter decision for one work.
type Verdict struct {
	Admit   bool
	Outcome artwork.Outcome
	Reason  string
	Detail  string
}

func admit() Verdict { return Verdict{Admit: true, Outcome: artwork.OutcomeOK} }

func reject(outcome artwork.Outcome, reason, detail string) Verdict {
	return Verdict{Outcome: outcome, Reason: reason, Detail: detail}
}

// Evaluate applies the filter rules in order; the first failing rule wins.
func Evaluate(work *artwork.Work, policy Policy, lists *Blacklists, opts Options) Verdict {
	if policy.AIDisplayFewer && work.AIType == artwork.AIGenerated {
		return reject(artwork.OutcomeSkipBlacklist, ReasonAIGenerated, "work is AI-generated")
	}

	if policy.DateDiff > 0 && work.HasKnownDate() {
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		cutoff := now.AddDate(0, 0, -policy.DateDiff)
		if work.Created.Before(cutoff) {
			return reject(artwork.OutcomeSkipOlder, ReasonOlder, fmt.Sprintf("older than %d day(s)", policy.DateDiff))
		}
	}

	if opts.UseBlacklist {
		if v, rejected := evaluateBlacklists(work, policy, lists); rejected {
			return v
		}
	}

	pattern := policy.ExtensionFilter
	if opts.ExtensionFilter != nil {
		pattern = *opts.ExtensionFilter
	}
	if strings.TrimSpace(pattern) != "" {
		re, err := CompileExtensionFilter(pattern)
		if err != nil {
			return reject(artwork.OutcomeSkipBlacklist, ReasonExtension, err.Error())
		}
		for _, url := range work.ImageURLs {
			if !re.MatchString(artwork.URLExtension(url)) {
				return reject(artwork.OutcomeSkipBlacklist, ReasonExtension, "url is not in the filter: "+url)
			}
		}
	}

	if opts.MinBookmarks >= 0 && work.BookmarkCount < opts.MinBookmarks {
		return reject(artwork.OutcomeSkipBlacklist, ReasonBookmarks,
			fmt.Sprintf("bookmark count %d is less than %d", work.BookmarkCount, opts.MinBookmarks))
	}

	return admit()
}

func evaluateBlacklists(work *artwork.Work, policy Policy, lists *Blacklists) (Verdict, bool) {
	if lists == nil {
		lists = &Blacklists{}
	}
	if policy.UseBlacklistMembers {
		if id, ok := work.MemberID(); ok && lists.HasMember(strconv.FormatInt(id, 10)) {
			return reject(artwork.OutcomeSkipBlacklist, ReasonMember, "blacklisted member id: "+strconv.FormatInt(id, 10)), true
		}
	}
	if policy.UseBlacklistTags {
		for _, tag := range lists.Tags {
			if work.HasTag(tag) {
				return reject(artwork.OutcomeSkipBlacklist, ReasonTag, "blacklisted tag: "+tag), true
			}
		}
	}
	switch policy.R18Type {
	case R18SkipR18G:
		if work.HasTagFold("R-18G") {
			return reject(artwork.OutcomeSkipBlacklist, ReasonR18G, "work has R-18G tag"), true
		}
	case R18SkipR18:
		if work.HasTagFold("R-18") {
			return reject(artwork.OutcomeSkipBlacklist, ReasonR18, "work has R-18 tag"), true
		}
	}
	if policy.UseBlacklistTitles {
		if policy.UseTitlesRegex {
			for i, re := range lists.titleRegexps() {
				if re != nil && re.MatchString(work.Title) {
					return reject(artwork.OutcomeSkipBlacklist, ReasonTitle, "title matched: "+lists.Titles[i]), true
				}
			}
		} else {
			for _, item := range lists.Titles {
				if item != "" && strings.Contains(work.Title, item) {
					return reject(artwork.OutcomeSkipBlacklist, ReasonTitle, "title contained: "+item), true
				}
			}
		}
	}
	return Verdict{}, false
}

// CompileExtensionFilter compiles an extension pattern; "ugoira" also admits zip bundles.
func CompileExtensionFilter(pattern string) (*regexp.Regexp, error) {
	if strings.Contains(pattern, "ugoira") {
		pattern += "|zip"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid extension filter %q: %w", pattern, err)
	}
	return re, nil
}

// SuppressTags removes suppressed tags from the work and returns how many were removed.
func SuppressTags(work *artwork.Work, suppress []string) int {
	removed := 0
	for _, item := range suppress {
		if work.RemoveTag(item) {
			removed++
		}
	}
	return removed
}
