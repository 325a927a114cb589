package amazon

import (
	"context"
	"regexp"
	"strings"

	"github.com/chri75252/simpler-fba-sub003/internal/matching"
)

// SearchResult is one organic search-result tile (spec §4.5's
// search_by_ean/search_by_title return shape).
type SearchResult struct {
	ASIN       string
	Title      string
	Similarity float64 // only populated by SearchByTitle.
}

// maxSponsoredScanCandidates bounds how many tiles the sponsored
// filter examines before giving up (spec §4.5).
const maxSponsoredScanCandidates = 15

// maxOrganicsToCollect stops scanning once this many organics are
// found (spec §4.5).
const maxOrganicsToCollect = 5

// eanOverlapAcceptanceThreshold is the minimum title-overlap score to
// accept the best-scoring EAN-search candidate outright (spec §4.5).
const eanOverlapAcceptanceThreshold = 0.25

var sponsoredTextPattern = regexp.MustCompile(`(?i)sponsored|advertisement|ad for`)

// adMarkerClasses are known sponsored-tile CSS classes (spec §4.5's
// "known ad-marker classes").
var adMarkerClasses = []string{"s-sponsored-label-info-icon", "puis-sponsored-label-text"}

// searchTile is the raw candidate shape the sponsored filter and EAN
// disambiguation consume, carrying the markers needed to classify it.
type searchTile struct {
	ASIN                string
	Title               string
	VisibleText         string
	AriaLabel           string
	ComponentType       string
	Classes             []string
	IsDetailPageElement bool // true when this tile IS the landing detail page (redirect case).
	DetailPageURL       string
}

// isSponsored applies spec §4.5's five sponsored-tile heuristics.
func isSponsored(tile searchTile) bool {
	if strings.Contains(tile.VisibleText, "Sponsored") {
		return true
	}
	if strings.EqualFold(tile.AriaLabel, "Sponsored") {
		return true
	}
	if tile.ComponentType == "sp-sponsored-result" {
		return true
	}
	for _, want := range adMarkerClasses {
		for _, have := range tile.Classes {
			if have == want {
				return true
			}
		}
	}
	if sponsoredTextPattern.MatchString(tile.VisibleText) {
		return true
	}
	return false
}

// collectOrganics scans tiles in order, discarding sponsored ones,
// stopping after scanning maxSponsoredScanCandidates tiles or
// collecting maxOrganicsToCollect organics, whichever comes first
// (spec §4.5).
func collectOrganics(tiles []searchTile) []searchTile {
	var organics []searchTile
	for i, tile := range tiles {
		if i >= maxSponsoredScanCandidates {
			break
		}
		if isSponsored(tile) {
			continue
		}
		organics = append(organics, tile)
		if len(organics) >= maxOrganicsToCollect {
			break
		}
	}
	return organics
}

// EANSearchOutcome is the disambiguated result of an EAN search,
// carrying the match-confidence annotation spec §4.5 requires for the
// ambiguous-multi-organic case.
type EANSearchOutcome struct {
	ASIN              string
	Title             string
	MatchConfidence   string // "" (unambiguous) or "low".
	DirectRedirect    bool
	DirectRedirectURL string
}

// SearchByEAN runs the EAN search, applies the sponsored filter, and
// disambiguates among organic results per spec §4.5.
func (e *Extractor) SearchByEAN(ctx context.Context, ean string, supplierTitle string) (*EANSearchOutcome, error) {
	tiles, redirectURL, err := e.fetchEANSearchTiles(ctx, ean)
	if err != nil {
		return nil, err
	}

	if redirectURL != "" {
		asin, ok := asinFromURL(redirectURL)
		if ok {
			return &EANSearchOutcome{ASIN: asin, DirectRedirect: true, DirectRedirectURL: redirectURL}, nil
		}
	}

	organics := collectOrganics(tiles)
	return disambiguate(organics, supplierTitle), nil
}

// disambiguate implements spec §4.5's EAN disambiguation rule: a
// single organic is taken as-is; among multiple, the highest-overlap
// candidate is accepted if its score clears the threshold, else the
// first candidate is returned flagged "low" confidence.
func disambiguate(organics []searchTile, supplierTitle string) *EANSearchOutcome {
	if len(organics) == 0 {
		return nil
	}
	if len(organics) == 1 {
		return &EANSearchOutcome{ASIN: organics[0].ASIN, Title: organics[0].Title}
	}

	bestIdx := 0
	bestScore := -1.0
	for i, tile := range organics {
		score := matching.TitleSimilarity(supplierTitle, tile.Title, nil)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestScore >= eanOverlapAcceptanceThreshold {
		return &EANSearchOutcome{ASIN: organics[bestIdx].ASIN, Title: organics[bestIdx].Title}
	}
	return &EANSearchOutcome{ASIN: organics[0].ASIN, Title: organics[0].Title, MatchConfidence: "low"}
}

// SearchByTitle runs a free-text title search and scores every
// organic result against the query title (spec §4.5).
func (e *Extractor) SearchByTitle(ctx context.Context, title string) ([]SearchResult, error) {
	tiles, err := e.fetchTitleSearchTiles(ctx, title)
	if err != nil {
		return nil, err
	}

	organics := collectOrganics(tiles)
	results := make([]SearchResult, 0, len(organics))
	for _, tile := range organics {
		results = append(results, SearchResult{
			ASIN:       tile.ASIN,
			Title:      tile.Title,
			Similarity: matching.TitleSimilarity(title, tile.Title, nil),
		})
	}
	return results, nil
}
