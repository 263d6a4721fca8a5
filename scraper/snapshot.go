package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"techline/address"
	"techline/config"
	"techline/models"
)

// Offline re-extraction of dumped card pages. When a live session dies after
// the card rendered, the saved HTML still holds every field; this parses it
// with the same selector set the browser session uses.

func ParseBuildingSnapshot(r io.Reader, cfg *config.SourceConfig) (*models.RawBuilding, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	if doc.Find(cfg.Selectors.Card).Length() == 0 {
		return nil, fmt.Errorf("no detail card in snapshot")
	}

	raw := models.NewRawBuilding()

	if title := doc.Find(cfg.Selectors.Title).First(); title.Length() > 0 {
		raw.Title = address.CleanText(title.Text())
	}

	var parts []string
	doc.Find(cfg.Selectors.AddressParts).Each(func(_ int, sel *goquery.Selection) {
		if text := address.CleanText(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) > 0 {
		raw.Address = strings.Join(parts, ", ")
	}

	doc.Find(cfg.Selectors.InfoBlocks).Each(func(_ int, sel *goquery.Selection) {
		if strings.Contains(sel.Text(), cfg.FloorKeyword) {
			raw.Floors = address.CleanText(sel.Text())
		}
	})

	if block := doc.Find(cfg.Selectors.EntrancesBlock).First(); block.Length() > 0 {
		if text := block.Text(); strings.Contains(text, cfg.EntranceKeyword) {
			raw.Entrances = address.CleanText(text)
		}
	}

	doc.Find(cfg.Selectors.ApartmentLine).Each(func(_ int, sel *goquery.Selection) {
		if text := address.CleanText(sel.Text()); text != "" {
			raw.Apartments = append(raw.Apartments, text)
		}
	})

	return raw, nil
}

func ParseOrganizationSnapshot(r io.Reader, cfg *config.SourceConfig) (*models.RawOrganization, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	if doc.Find(cfg.Selectors.Card).Length() == 0 {
		return nil, fmt.Errorf("no detail card in snapshot")
	}

	org := &models.RawOrganization{Title: models.PlaceholderNotFound}

	if title := doc.Find(cfg.Selectors.Title).First(); title.Length() > 0 {
		org.Title = address.CleanText(title.Text())
	}

	var parts []string
	doc.Find(cfg.Selectors.AddressParts).Each(func(_ int, sel *goquery.Selection) {
		if text := address.CleanText(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) > 0 {
		org.Address = strings.Join(parts, ", ")
	}

	var rows []string
	doc.Find(cfg.Selectors.ScheduleRows).Each(func(_ int, sel *goquery.Selection) {
		if text := address.CleanText(sel.Text()); text != "" {
			rows = append(rows, text)
		}
	})
	org.WorkingHours = strings.Join(rows, "; ")

	if phone := doc.Find(cfg.Selectors.PhoneValue).First(); phone.Length() > 0 {
		org.Phone = address.CleanText(phone.Text())
	}

	if comments := doc.Find(cfg.Selectors.CommentsBlock).First(); comments.Length() > 0 {
		org.Comments = address.CleanText(comments.Text())
	}

	return org, nil
}
