// internal/page/extractor.go
// Package page turns live browser tabs into compact structured snapshots and
// article records the decision service can reason about.
package page

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/config"
)

const degradedPlaceholder = "(unavailable)"

// snapshotScript collects the interactive surface of the page in one pass:
// visible inputs, buttons, capped links, article/headline text, and a body
// preview. Selectors are built from id, name, or a positional nth-of-type
// fallback so the executor can address every element it reports.
const snapshotScript = `(() => {
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	const cssEscape = (s) => (window.CSS && CSS.escape) ? CSS.escape(s) : s;
	const selectorFor = (el) => {
		if (el.id) return '#' + cssEscape(el.id);
		if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';
		const tag = el.tagName.toLowerCase();
		const peers = Array.from(document.querySelectorAll(tag));
		return tag + ':nth-of-type(' + (peers.indexOf(el) + 1) + ')';
	};
	const clean = (s) => (s || '').replace(/\s+/g, ' ').trim();

	const inputs = Array.from(document.querySelectorAll('input, textarea, select'))
		.filter(visible)
		.slice(0, 20)
		.map(el => ({
			selector: selectorFor(el),
			type: el.type || el.tagName.toLowerCase(),
			name: el.name || '',
			placeholder: el.placeholder || '',
		}));

	const buttons = Array.from(document.querySelectorAll('button, input[type="submit"], [role="button"], a.btn'))
		.filter(visible)
		.slice(0, 20)
		.map(el => ({
			selector: selectorFor(el),
			text: clean(el.innerText || el.value).slice(0, 80),
		}));

	const links = Array.from(document.querySelectorAll('a[href]'))
		.filter(el => visible(el) && clean(el.innerText).length > 0)
		.map(el => ({ text: clean(el.innerText).slice(0, 120), href: el.href }));

	const articles = Array.from(document.querySelectorAll('article, h1, h2, h3'))
		.map(el => clean(el.innerText).slice(0, 200))
		.filter(t => t.length > 0)
		.slice(0, 30);

	return {
		title: document.title,
		url: location.href,
		inputs: inputs,
		buttons: buttons,
		links: links,
		articles: articles,
		body_preview: clean(document.body ? document.body.innerText : ''),
	};
})()`

// Extractor builds PageSnapshots from a live session.
type Extractor struct {
	cfg    config.CrawlerConfig
	logger *zap.Logger
}

// NewExtractor returns a snapshot extractor bounded by the crawler config.
func NewExtractor(cfg config.CrawlerConfig, logger *zap.Logger) *Extractor {
	return &Extractor{cfg: cfg, logger: logger.Named("extractor")}
}

// Snapshot captures the current page state. Extraction never fails the step:
// if the page script cannot be evaluated within the snapshot timeout, a
// degraded placeholder snapshot is returned instead, flagged so the decision
// service knows the view is partial.
func (e *Extractor) Snapshot(ctx context.Context, session schemas.BrowserSession) schemas.PageSnapshot {
	snapCtx, cancel := context.WithTimeout(ctx, e.cfg.SnapshotTimeout)
	defer cancel()

	var snap schemas.PageSnapshot
	if err := session.Evaluate(snapCtx, snapshotScript, &snap); err != nil {
		e.logger.Warn("Snapshot extraction failed; returning degraded snapshot.", zap.Error(err))
		return e.degraded(ctx, session)
	}

	if len(snap.Links) > e.cfg.LinkCap {
		snap.Links = snap.Links[:e.cfg.LinkCap]
	}
	if len(snap.BodyPreview) > e.cfg.BodyPreviewChars {
		snap.BodyPreview = snap.BodyPreview[:e.cfg.BodyPreviewChars]
	}
	return snap
}

// degraded builds the minimal snapshot used when extraction fails. The URL is
// still read from the session where possible since the loop keys its state
// transitions on it; when the location cannot be read either, the URL is left
// empty so the caller can fall back to the last URL it observed.
func (e *Extractor) degraded(ctx context.Context, session schemas.BrowserSession) schemas.PageSnapshot {
	url := ""
	if u, err := session.CurrentURL(ctx); err == nil {
		url = u
	}
	return schemas.PageSnapshot{
		Title:       degradedPlaceholder,
		URL:         url,
		BodyPreview: degradedPlaceholder,
		Degraded:    true,
	}
}

// DescribeSnapshot renders a snapshot as the compact text block fed to the
// decision service.
func DescribeSnapshot(snap schemas.PageSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page: %s\nURL: %s\n", snap.Title, snap.URL)
	if snap.Degraded {
		b.WriteString("NOTE: page state could not be fully extracted.\n")
	}
	if len(snap.Inputs) > 0 {
		b.WriteString("\nInputs:\n")
		for _, in := range snap.Inputs {
			fmt.Fprintf(&b, "  - %s (type=%s name=%q placeholder=%q)\n", in.Selector, in.Kind, in.Name, in.Placeholder)
		}
	}
	if len(snap.Buttons) > 0 {
		b.WriteString("\nButtons:\n")
		for _, btn := range snap.Buttons {
			fmt.Fprintf(&b, "  - %s %q\n", btn.Selector, btn.Text)
		}
	}
	if len(snap.Links) > 0 {
		b.WriteString("\nLinks:\n")
		for _, l := range snap.Links {
			fmt.Fprintf(&b, "  - %q -> %s\n", l.Text, l.Href)
		}
	}
	if len(snap.Articles) > 0 {
		b.WriteString("\nHeadlines:\n")
		for _, a := range snap.Articles {
			fmt.Fprintf(&b, "  - %s\n", a)
		}
	}
	if snap.BodyPreview != "" {
		fmt.Fprintf(&b, "\nBody preview:\n%s\n", snap.BodyPreview)
	}
	return b.String()
}
