package scraper

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
	"techline/address"
	"techline/config"
	"techline/models"
)

// DGisSource drives a real browser against the 2GIS web UI. The persistent
// profile keeps the session warm between fetches; one page is reused for the
// life of the source. Not safe for concurrent fetches on its own; the daemon
// shares it through ExclusiveSource.
type DGisSource struct {
	cfg     *config.SourceConfig
	browser config.BrowserConfig

	mu          sync.Mutex
	pw          *playwright.Playwright
	context     playwright.BrowserContext
	page        playwright.Page
	initialized bool
}

func NewDGisSource(cfg *config.SourceConfig, browser config.BrowserConfig) *DGisSource {
	return &DGisSource{cfg: cfg, browser: browser}
}

func (s *DGisSource) ensureBrowser() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return nil
	}

	var err error
	s.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	s.context, err = s.pw.Chromium.LaunchPersistentContext(s.browser.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(s.browser.Headless),
		SlowMo:   playwright.Float(float64(s.browser.SlowMoMS)),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		s.pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.page, err = s.context.NewPage()
	if err != nil {
		s.context.Close()
		s.pw.Stop()
		return fmt.Errorf("failed to create page: %w", err)
	}

	if _, err := s.page.Goto(s.cfg.BaseURL, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(s.cfg.Timeouts.SearchMS)),
	}); err != nil {
		log.Printf("Initial navigation error (continuing): %v", err)
	}

	s.initialized = true
	return nil
}

func (s *DGisSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
	if s.context != nil {
		s.context.Close()
		s.context = nil
	}
	if s.pw != nil {
		s.pw.Stop()
		s.pw = nil
	}
	s.initialized = false
}

func (s *DGisSource) FetchBuilding(ctx context.Context, cityURL, query string) (*models.RawBuilding, error) {
	if err := s.ensureBrowser(); err != nil {
		return nil, err
	}

	hits, direct, err := s.search(ctx, cityURL, query, true)
	if err != nil {
		return nil, err
	}

	switch {
	case direct:
		return s.extractBuilding(ctx, "")
	case len(hits) > 0:
		return s.extractBuilding(ctx, hits[0].URL)
	default:
		return nil, ErrNotFound
	}
}

func (s *DGisSource) FetchOrganization(ctx context.Context, cityURL, query string) (*models.RawOrganization, error) {
	if err := s.ensureBrowser(); err != nil {
		return nil, err
	}

	hits, direct, err := s.search(ctx, cityURL, query, false)
	if err != nil {
		return nil, err
	}

	switch {
	case direct:
		return s.extractOrganization(ctx, "")
	case len(hits) > 0:
		return s.extractOrganization(ctx, hits[0].URL)
	default:
		return nil, ErrNotFound
	}
}

// search types a query into the city-scoped search box and classifies the
// outcome: a detail card opened directly, a result list appeared, or
// nothing. With residentialOnly the list is filtered by the configured
// building-type keywords.
func (s *DGisSource) search(ctx context.Context, cityURL, query string, residentialOnly bool) ([]models.SearchHit, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if _, err := s.page.Goto(cityURL, playwright.PageGotoOptions{
		Timeout: playwright.Float(float64(s.cfg.Timeouts.SearchMS)),
	}); err != nil {
		return nil, false, fmt.Errorf("navigate to city: %w", err)
	}

	input := s.page.Locator(s.cfg.SearchInput)
	if err := input.WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(s.cfg.Timeouts.SearchMS)),
	}); err != nil {
		return nil, false, fmt.Errorf("search input not found: %w", err)
	}

	if err := input.Fill(query); err != nil {
		return nil, false, fmt.Errorf("fill search input: %w", err)
	}
	if err := s.page.Keyboard().Press("Enter"); err != nil {
		return nil, false, fmt.Errorf("submit search: %w", err)
	}
	s.page.WaitForTimeout(3000)

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	if s.isCardOpened() {
		return nil, true, nil
	}

	list := s.page.Locator(s.cfg.Selectors.ResultList)
	if err := list.WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(s.cfg.Timeouts.ResultsMS)),
	}); err != nil {
		return nil, false, nil
	}

	items := s.page.Locator(s.cfg.Selectors.ResultItem)
	count, err := items.Count()
	if err != nil {
		return nil, false, fmt.Errorf("count results: %w", err)
	}

	var hits []models.SearchHit
	for i := 0; i < count; i++ {
		item := items.Nth(i)

		title, err := item.Locator(s.cfg.Selectors.ResultLink).First().TextContent()
		if err != nil || title == "" {
			continue
		}
		href, err := item.Locator(s.cfg.Selectors.ResultLink).First().GetAttribute("href")
		if err != nil || href == "" {
			continue
		}

		if residentialOnly {
			kind, err := item.Locator(s.cfg.Selectors.ResultType).First().TextContent()
			if err != nil || !s.isResidential(kind) {
				continue
			}
		}

		hits = append(hits, models.SearchHit{
			Title: address.CleanText(title),
			URL:   s.cfg.BaseURL + strings.TrimSpace(href),
		})
	}

	log.Printf("Search %q: %d candidate(s)", query, len(hits))
	return hits, false, nil
}

func (s *DGisSource) isResidential(kind string) bool {
	kind = strings.ToLower(kind)
	for _, word := range s.cfg.ResidentialKeywords {
		if strings.Contains(kind, word) {
			return true
		}
	}
	return false
}

func (s *DGisSource) isCardOpened() bool {
	err := s.page.Locator(s.cfg.Selectors.Card).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(s.cfg.Timeouts.ResultsMS)),
	})
	return err == nil
}

// extractBuilding lifts the building detail card field by field. Extraction
// is best-effort: a field whose element never appears keeps its placeholder,
// and only a missing card as a whole is an error.
func (s *DGisSource) extractBuilding(ctx context.Context, url string) (*models.RawBuilding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if url != "" {
		if _, err := s.page.Goto(url, playwright.PageGotoOptions{
			Timeout: playwright.Float(float64(s.cfg.Timeouts.CardMS)),
		}); err != nil {
			return nil, fmt.Errorf("navigate to card: %w", err)
		}
	}
	s.page.WaitForTimeout(2000)

	raw := models.NewRawBuilding()

	if err := s.page.Locator(s.cfg.Selectors.Card).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(s.cfg.Timeouts.CardMS)),
	}); err != nil {
		s.dumpPage("building")
		return nil, fmt.Errorf("detail card never appeared: %w", err)
	}

	title := s.page.Locator(s.cfg.Selectors.Title).First()
	if visible, _ := title.IsVisible(); visible {
		if text, err := title.TextContent(); err == nil {
			raw.Title = address.CleanText(text)
		}
	}

	if parts, err := s.page.Locator(s.cfg.Selectors.AddressParts).AllTextContents(); err == nil && len(parts) > 0 {
		raw.Address = address.CleanText(strings.Join(parts, ", "))
	}

	if blocks, err := s.page.Locator(s.cfg.Selectors.InfoBlocks).AllTextContents(); err == nil {
		for _, block := range blocks {
			if strings.Contains(block, s.cfg.FloorKeyword) {
				raw.Floors = address.CleanText(block)
			}
		}
	}

	entrances := s.page.Locator(s.cfg.Selectors.EntrancesBlock).First()
	if visible, _ := entrances.IsVisible(); visible {
		if text, err := entrances.TextContent(); err == nil && strings.Contains(text, s.cfg.EntranceKeyword) {
			raw.Entrances = address.CleanText(text)
		}
	}

	s.expandApartmentsPanel()

	if lines, err := s.page.Locator(s.cfg.Selectors.ApartmentLine).AllTextContents(); err == nil {
		for _, line := range lines {
			if line != "" {
				raw.Apartments = append(raw.Apartments, address.CleanText(line))
			}
		}
	}

	return raw, nil
}

// expandApartmentsPanel clicks the per-entrance apartments accordion open if
// it is currently collapsed. The arrow icon's rotate(0deg) style marks the
// collapsed state.
func (s *DGisSource) expandApartmentsPanel() {
	toggle := s.page.Locator(s.cfg.Selectors.ApartmentToggle)
	visible, _ := toggle.IsVisible()
	if !visible {
		return
	}

	arrow, _ := toggle.Locator("svg").GetAttribute("style")
	if !strings.Contains(arrow, "rotate(0deg)") {
		return
	}

	if err := toggle.Click(); err != nil {
		log.Printf("Apartments toggle click failed: %v", err)
		return
	}
	if err := s.page.Locator(s.cfg.Selectors.ApartmentPanel).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(s.cfg.Timeouts.FieldMS)),
	}); err != nil {
		log.Printf("Apartments panel never expanded: %v", err)
		return
	}
	s.page.WaitForTimeout(1000)
}

func (s *DGisSource) extractOrganization(ctx context.Context, url string) (*models.RawOrganization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if url != "" {
		if _, err := s.page.Goto(url, playwright.PageGotoOptions{
			Timeout: playwright.Float(float64(s.cfg.Timeouts.CardMS)),
		}); err != nil {
			return nil, fmt.Errorf("navigate to card: %w", err)
		}
	}
	s.page.WaitForTimeout(2000)

	if err := s.page.Locator(s.cfg.Selectors.Card).First().WaitFor(playwright.LocatorWaitForOptions{
		Timeout: playwright.Float(float64(s.cfg.Timeouts.CardMS)),
	}); err != nil {
		s.dumpPage("organization")
		return nil, fmt.Errorf("detail card never appeared: %w", err)
	}

	org := &models.RawOrganization{Title: models.PlaceholderNotFound}

	title := s.page.Locator(s.cfg.Selectors.Title).First()
	if visible, _ := title.IsVisible(); visible {
		if text, err := title.TextContent(); err == nil {
			org.Title = address.CleanText(text)
		}
	}

	if parts, err := s.page.Locator(s.cfg.Selectors.AddressParts).AllTextContents(); err == nil && len(parts) > 0 {
		org.Address = address.CleanText(strings.Join(parts, ", "))
	}

	org.WorkingHours = s.extractSchedule()
	org.Phone = s.extractPhone()

	comments := s.page.Locator(s.cfg.Selectors.CommentsBlock).First()
	if visible, _ := comments.IsVisible(); visible {
		if text, err := comments.TextContent(); err == nil {
			org.Comments = address.CleanText(text)
		}
	}

	return org, nil
}

func (s *DGisSource) extractSchedule() string {
	toggle := s.page.Locator(s.cfg.Selectors.ScheduleToggle).First()
	if visible, _ := toggle.IsVisible(); visible {
		if err := toggle.Click(); err == nil {
			s.page.WaitForTimeout(500)
		}
	}

	rows, err := s.page.Locator(s.cfg.Selectors.ScheduleRows).AllTextContents()
	if err != nil || len(rows) == 0 {
		return ""
	}

	cleaned := make([]string, 0, len(rows))
	for _, row := range rows {
		if text := address.CleanText(row); text != "" {
			cleaned = append(cleaned, text)
		}
	}
	return strings.Join(cleaned, "; ")
}

func (s *DGisSource) extractPhone() string {
	reveal := s.page.Locator(s.cfg.Selectors.PhoneReveal).First()
	if visible, _ := reveal.IsVisible(); visible {
		if err := reveal.Click(); err == nil {
			s.page.WaitForTimeout(500)
		}
	}

	value := s.page.Locator(s.cfg.Selectors.PhoneValue).First()
	if visible, _ := value.IsVisible(); visible {
		if text, err := value.TextContent(); err == nil {
			return address.CleanText(text)
		}
	}
	return ""
}

// dumpPage saves the current page for offline inspection and re-extraction
// when a card fails to load the way the selectors expect.
func (s *DGisSource) dumpPage(label string) {
	content, err := s.page.Content()
	if err != nil {
		return
	}
	path := fmt.Sprintf("debug_%s.html", label)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return
	}
	s.page.Screenshot(playwright.PageScreenshotOptions{Path: playwright.String(fmt.Sprintf("debug_%s.png", label))})
	log.Printf("Saved page dump to %s", path)
}
