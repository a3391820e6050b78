// Package fetch collects raw review blocks from listing pages. A fetch never
// fails: problems end up in Result.Log and an empty result.
package fetch

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/domain"
)

type Result struct {
	Blocks        []string
	ListingRating *float64
	Log           []string
}

func (r *Result) logf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

type Fetcher struct {
	browser  domain.Browser
	profiles map[domain.Platform]Profile
}

func New(b domain.Browser, profiles map[domain.Platform]Profile) *Fetcher {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Fetcher{browser: b, profiles: profiles}
}

var hasDigit = regexp.MustCompile(`\d`)

// Fetch opens url and returns up to MaxBlocks raw review texts.
func (f *Fetcher) Fetch(ctx context.Context, url string, p domain.Platform) Result {
	var res Result
	start := time.Now()
	defer func() {
		observability.ObserveFetch(string(p), len(res.Blocks) > 0, time.Since(start))
	}()

	prof, ok := f.profiles[p]
	if !ok {
		res.logf("no profile for platform %q", p)
		return res
	}
	page, err := f.browser.Open(ctx, url)
	if err != nil {
		res.logf("open: %v", err)
		return res
	}
	if err := page.Wait(ctx, prof.Settle); err != nil {
		res.logf("settle: %v", err)
		return res
	}

	res.ListingRating = f.listingRating(ctx, page, prof, &res)

	if f.reveal(ctx, page, prof, &res) {
		if err := page.Wait(ctx, prof.RevealSettle); err != nil {
			res.logf("reveal settle: %v", err)
			return res
		}
	}

	res.Blocks = f.collect(ctx, page, prof, &res)
	return res
}

// reveal clicks the first "show all reviews" control it can find.
func (f *Fetcher) reveal(ctx context.Context, page domain.Page, prof Profile, res *Result) bool {
	for _, sel := range prof.RevealSelectors {
		els, err := page.Query(ctx, sel)
		if err != nil || len(els) == 0 {
			res.logf("reveal %s: no match", sel)
			continue
		}
		if err := page.Click(ctx, els[0]); err != nil {
			res.logf("reveal %s: click: %v", sel, err)
			continue
		}
		return true
	}

	rb := prof.RevealButton
	if rb == nil {
		return false
	}
	buttons, err := page.Query(ctx, rb.Selector)
	if err != nil {
		res.logf("reveal by label: %v", err)
		return false
	}
	for _, b := range buttons {
		txt, err := page.Text(ctx, b)
		if err != nil || !rb.Label.MatchString(txt) {
			continue
		}
		if rb.MaxLen > 0 && len([]rune(txt)) >= rb.MaxLen {
			continue
		}
		if rb.NeedsDigit && !hasDigit.MatchString(txt) {
			continue
		}
		if err := page.Click(ctx, b); err != nil {
			res.logf("reveal by label %q: click: %v", txt, err)
			continue
		}
		return true
	}
	res.logf("reveal by label: no button matched %s", rb.Label)
	return false
}

// collect uses the first review selector that yields any block.
func (f *Fetcher) collect(ctx context.Context, page domain.Page, prof Profile, res *Result) []string {
	for _, sel := range prof.ReviewSelectors {
		els, err := page.Query(ctx, sel)
		if err != nil {
			res.logf("reviews %s: %v", sel, err)
			continue
		}
		if prof.MaxBlocks > 0 && len(els) > prof.MaxBlocks {
			els = els[:prof.MaxBlocks]
		}
		var blocks []string
		seen := map[string]bool{}
		for _, el := range els {
			txt, err := page.Text(ctx, el)
			if err != nil {
				res.logf("reviews %s: text: %v", sel, err)
				continue
			}
			if prof.SplitLines {
				txt = keepLongLines(txt)
			}
			if prof.ScoreSelector != "" {
				txt = scorePrefix(ctx, page, el, prof.ScoreSelector) + txt
			}
			if len([]rune(txt)) < prof.MinLength {
				continue
			}
			if prof.Dedup {
				if seen[txt] {
					continue
				}
				seen[txt] = true
			}
			blocks = append(blocks, txt)
		}
		if len(blocks) > 0 {
			return blocks
		}
		res.logf("reviews %s: no blocks", sel)
	}
	return nil
}

func keepLongLines(s string) string {
	var keep []string
	for _, l := range strings.Split(s, "\n") {
		if len([]rune(l)) > 2 {
			keep = append(keep, l)
		}
	}
	return strings.Join(keep, "\n")
}

func scorePrefix(ctx context.Context, page domain.Page, card domain.Element, sel string) string {
	els, err := page.QueryWithin(ctx, card, sel)
	if err != nil || len(els) == 0 {
		return ""
	}
	txt, err := page.Text(ctx, els[0])
	if err != nil || strings.TrimSpace(txt) == "" {
		return ""
	}
	return "⭐ " + strings.TrimSpace(txt) + " | "
}

func (f *Fetcher) listingRating(ctx context.Context, page domain.Page, prof Profile, res *Result) *float64 {
	for _, src := range prof.RatingSources {
		els, err := page.Query(ctx, src.Selector)
		if err != nil || len(els) == 0 {
			res.logf("rating %s: no match", src.Selector)
			continue
		}
		if !src.FullMatch {
			els = els[:1]
		} else if src.Limit > 0 && len(els) > src.Limit {
			els = els[:src.Limit]
		}
		for _, el := range els {
			txt, err := page.Text(ctx, el)
			if err != nil {
				continue
			}
			txt = strings.TrimSpace(txt)
			var raw string
			if src.FullMatch {
				if !src.Pattern.MatchString(txt) {
					continue
				}
				raw = txt
			} else if m := src.Pattern.FindStringSubmatch(txt); m != nil {
				raw = m[len(m)-1]
			}
			if v, ok := parseRating(raw, prof.RatingDivisor); ok {
				return &v
			}
		}
		res.logf("rating %s: unparseable", src.Selector)
	}
	return nil
}

func parseRating(s string, divisor float64) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	if divisor > 0 {
		v /= divisor
	}
	return v, v >= 0 && v <= 5
}

// ItemFunc is called after every target of a batch, in order.
type ItemFunc func(done, total int, t domain.Target, r Result)

type Failure struct {
	Target domain.Target
	Log    []string
}

type BatchReport struct {
	Succeeded int
	Failed    int
	Failures  []Failure
}

// RunBatch fetches targets one after another on the shared browser. A target
// fails when it yields no blocks; failures are logged once the batch ends.
func (f *Fetcher) RunBatch(ctx context.Context, targets []domain.Target, onItem ItemFunc) BatchReport {
	var rep BatchReport
	for i, t := range targets {
		if ctx.Err() != nil {
			rep.Failed += len(targets) - i
			for _, rest := range targets[i:] {
				rep.Failures = append(rep.Failures, Failure{Target: rest, Log: []string{"canceled"}})
			}
			break
		}
		r := f.Fetch(ctx, t.URL, t.Platform)
		if len(r.Blocks) > 0 {
			rep.Succeeded++
		} else {
			rep.Failed++
			rep.Failures = append(rep.Failures, Failure{Target: t, Log: r.Log})
		}
		if r.ListingRating != nil {
			observability.ListingRating.WithLabelValues(t.ListingName, string(t.Platform)).Set(*r.ListingRating)
		}
		if onItem != nil {
			onItem(i+1, len(targets), t, r)
		}
	}
	for _, fl := range rep.Failures {
		log.Warn().
			Str("listing", fl.Target.ListingName).
			Str("platform", string(fl.Target.Platform)).
			Str("url", fl.Target.URL).
			Strs("diagnostics", fl.Log).
			Msg("no reviews fetched")
	}
	return rep
}
