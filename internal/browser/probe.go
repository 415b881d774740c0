package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"katari/internal/interfaces"
	"katari/internal/model"
)

// pageNavSelectors locate the report's page-navigation control. The
// heuristic is duck-typed against Looker's dashboard chrome, newest markup
// first.
var pageNavSelectors = []string{
	`[data-testid="dashboard-page-nav"]`,
	`.page-navigation`,
	`.dashboard-page-tabs`,
	`nav[aria-label="Report pages"]`,
}

// pageItemSelector matches the clickable entries inside the control.
const pageItemSelector = `button, a, [role="tab"]`

// listEntriesScript walks the first visible navigation control and returns
// its visible entries as {index, name, ref} objects. The ref is a
// structural nth-child path so activation needs no DOM mutation that would
// pollute captured HTML.
const listEntriesScript = `(function(navSelectors, itemSelector) {
	function visible(el) {
		return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	}
	function cssPath(el) {
		const parts = [];
		while (el && el.nodeType === Node.ELEMENT_NODE && el !== document.documentElement) {
			let idx = 1;
			let sib = el;
			while ((sib = sib.previousElementSibling) !== null) { idx++; }
			parts.unshift(el.localName + ':nth-child(' + idx + ')');
			el = el.parentElement;
		}
		return 'html > ' + parts.join(' > ');
	}
	for (const sel of navSelectors) {
		let nav;
		try { nav = document.querySelector(sel); } catch (e) { continue; }
		if (!nav || !visible(nav)) { continue; }
		const entries = [];
		for (const item of nav.querySelectorAll(itemSelector)) {
			if (!visible(item)) { continue; }
			entries.push({
				index: entries.length,
				name: (item.innerText || item.getAttribute('aria-label') || '').trim(),
				ref: cssPath(item),
			});
		}
		if (entries.length > 0) { return entries; }
	}
	return [];
})(%s, %s)`

const directClickScript = `(function(sel) {
	let el;
	try { el = document.querySelector(sel); } catch (e) { return false; }
	if (!el) { return false; }
	el.click();
	return true;
})(%s)`

// LookerProbe inspects a rendered Looker report for multi-page structure.
type LookerProbe struct {
	page   interfaces.Page
	logger interfaces.Logger
}

var _ interfaces.StructureProbe = (*LookerProbe)(nil)

func NewLookerProbe(page interfaces.Page, logger interfaces.Logger) *LookerProbe {
	return &LookerProbe{
		page:   page,
		logger: logger.With(interfaces.Field{Key: "component", Value: "probe"}),
	}
}

func (p *LookerProbe) HasMultiPageControl(ctx context.Context) (bool, error) {
	n, err := p.page.CountVisible(ctx, pageNavSelectors)
	if err != nil {
		return false, fmt.Errorf("probing for page navigation: %w", err)
	}
	return n > 0, nil
}

func (p *LookerProbe) ListPageEntries(ctx context.Context) ([]model.PageEntry, error) {
	navs, err := json.Marshal(pageNavSelectors)
	if err != nil {
		return nil, fmt.Errorf("encoding nav selectors: %w", err)
	}
	items, err := json.Marshal(pageItemSelector)
	if err != nil {
		return nil, fmt.Errorf("encoding item selector: %w", err)
	}
	var entries []model.PageEntry
	script := fmt.Sprintf(listEntriesScript, navs, items)
	if err := p.page.Evaluate(ctx, script, &entries); err != nil {
		return nil, fmt.Errorf("listing page entries: %w", err)
	}
	p.logger.Debug("page entries discovered", interfaces.Field{Key: "count", Value: len(entries)})
	return entries, nil
}

// ActivatePage clicks the entry's element. Controls that swallow synthetic
// pointer events get a direct DOM click as fallback.
func (p *LookerProbe) ActivatePage(ctx context.Context, entry model.PageEntry) error {
	if entry.Ref == "" {
		return fmt.Errorf("activating page %q: entry has no activation ref", entry.Name)
	}
	clickErr := p.page.Click(ctx, entry.Ref)
	if clickErr == nil {
		return nil
	}
	ref, err := json.Marshal(entry.Ref)
	if err != nil {
		return fmt.Errorf("activating page %q: %w", entry.Name, clickErr)
	}
	var clicked bool
	if err := p.page.Evaluate(ctx, fmt.Sprintf(directClickScript, ref), &clicked); err != nil || !clicked {
		return fmt.Errorf("activating page %q: %w", entry.Name, clickErr)
	}
	p.logger.Debug("activated page via direct click", interfaces.Field{Key: "page", Value: entry.Name})
	return nil
}
