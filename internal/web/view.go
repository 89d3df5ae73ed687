package web

import (
	"math"
	"strconv"
	"strings"
	"time"

	"cryptonics/internal/currency"
	"cryptonics/pkg/coingecko"
	"cryptonics/pkg/format"
)

// TotalCoinPages is the fixed page count of the coin grid.
const TotalCoinPages = 132

type CoinCard struct {
	ID        string
	Symbol    string
	Name      string
	Image     string
	Rank      int
	Price     string
	Change    string
	Positive  bool
	MarketCap string
	Volume    string
}

// NewCoinCard renders a market row in the session currency.
func NewCoinCard(c coingecko.Coin, cur currency.Code) CoinCard {
	return CoinCard{
		ID:        c.ID,
		Symbol:    strings.ToUpper(c.Symbol),
		Name:      c.Name,
		Image:     c.Image,
		Rank:      c.MarketCapRank,
		Price:     format.Price(c.CurrentPrice, cur.Symbol()),
		Change:    format.Percentage(math.Abs(c.PriceChangePercentage24H)),
		Positive:  c.PriceChangePercentage24H >= 0,
		MarketCap: format.Currency(c.MarketCap, string(cur)),
		Volume:    format.Currency(c.TotalVolume, string(cur)),
	}
}

func coinCards(coins []coingecko.Coin, cur currency.Code) []CoinCard {
	cards := make([]CoinCard, 0, len(coins))
	for _, c := range coins {
		cards = append(cards, NewCoinCard(c, cur))
	}
	return cards
}

type ExchangeCard struct {
	ID         string
	Name       string
	Image      string
	URL        string
	TrustScore int
	TrustClass string
	TrustRank  int
	Volume     string
	Year       string
	Country    string
}

// TrustClass maps a trust score to its badge colour.
func TrustClass(score int) string {
	switch {
	case score >= 8:
		return "trust-high"
	case score >= 6:
		return "trust-mid"
	default:
		return "trust-low"
	}
}

func NewExchangeCard(e coingecko.Exchange) ExchangeCard {
	card := ExchangeCard{
		ID:         e.ID,
		Name:       e.Name,
		Image:      e.Image,
		URL:        e.URL,
		TrustScore: e.TrustScore,
		TrustClass: TrustClass(e.TrustScore),
		TrustRank:  e.TrustScoreRank,
		Volume:     "₿" + format.Number(e.TradeVolume24HBTC),
	}
	if e.YearEstablished != nil {
		card.Year = strconv.Itoa(*e.YearEstablished)
	}
	if e.Country != nil {
		card.Country = *e.Country
	}
	return card
}

func exchangeCards(exchanges []coingecko.Exchange) []ExchangeCard {
	cards := make([]ExchangeCard, 0, len(exchanges))
	for _, e := range exchanges {
		cards = append(cards, NewExchangeCard(e))
	}
	return cards
}

// Stat is one label/value row. Href turns the value into a link.
type Stat struct {
	Label string
	Value string
	Href  string
}

type CoinHeader struct {
	ID       string
	Name     string
	Symbol   string
	Image    string
	Rank     int
	Price    string
	Change   string
	Positive bool
}

func NewCoinHeader(d *coingecko.CoinDetails, cur currency.Code) CoinHeader {
	change := d.MarketData.PriceChangePercentage24H
	return CoinHeader{
		ID:       d.ID,
		Name:     d.Name,
		Symbol:   strings.ToUpper(d.Symbol),
		Image:    d.Image.Large,
		Rank:     d.MarketCapRank,
		Price:    format.Price(d.MarketData.CurrentPrice.Get(string(cur)), cur.Symbol()),
		Change:   format.Percentage(math.Abs(change)),
		Positive: change >= 0,
	}
}

// MarketStats lists the market statistics panel.
func MarketStats(d *coingecko.CoinDetails, cur currency.Code) []Stat {
	code := string(cur)
	md := d.MarketData
	symbol := strings.ToUpper(d.Symbol)

	stats := []Stat{
		{Label: "Market Cap", Value: format.Currency(md.MarketCap.Get(code), code)},
		{Label: "24h Trading Volume", Value: format.Currency(md.TotalVolume.Get(code), code)},
		{Label: "Circulating Supply", Value: format.Number(md.CirculatingSupply) + " " + symbol},
	}
	if md.MaxSupply != nil && *md.MaxSupply > 0 {
		stats = append(stats, Stat{Label: "Max Supply", Value: format.Number(*md.MaxSupply) + " " + symbol})
	}
	return append(stats,
		Stat{Label: "All Time High", Value: format.Currency(md.ATH.Get(code), code)},
		Stat{Label: "All Time Low", Value: format.Currency(md.ATL.Get(code), code)},
	)
}

// InfoStats lists the links and information panel.
func InfoStats(d *coingecko.CoinDetails) []Stat {
	var stats []Stat
	if home := d.Links.FirstHomepage(); home != "" {
		stats = append(stats, Stat{Label: "Website", Value: "Visit", Href: home})
	}
	if gh := d.Links.FirstGitHub(); gh != "" {
		stats = append(stats, Stat{Label: "GitHub", Value: "Visit", Href: gh})
	}
	if d.GenesisDate != nil && *d.GenesisDate != "" {
		if t, err := time.Parse(time.DateOnly, *d.GenesisDate); err == nil {
			stats = append(stats, Stat{Label: "Genesis Date", Value: t.Format("1/2/2006")})
		}
	}
	stats = append(stats, Stat{Label: "CoinGecko Rank", Value: "#" + strconv.Itoa(d.CoinGeckoRank)})
	if d.MarketData.LastUpdated != nil {
		stats = append(stats, Stat{
			Label: "Last Updated",
			Value: d.MarketData.LastUpdated.UTC().Format("1/2/2006, 3:04:05 PM") + " UTC",
		})
	}
	return stats
}

// PageLink is one pagination control. Page 0 marks an ellipsis.
type PageLink struct {
	Page    int
	Current bool
}

type Pagination struct {
	Current int
	Total   int
	Prev    int
	Next    int
	Links   []PageLink
}

// BuildPagination returns the first, last and current +/- 1 pages with
// ellipses between gaps. Prev/Next are 0 at the edges.
func BuildPagination(current, total int) Pagination {
	if total < 1 {
		total = 1
	}
	current = min(max(current, 1), total)

	p := Pagination{Current: current, Total: total}
	if current > 1 {
		p.Prev = current - 1
	}
	if current < total {
		p.Next = current + 1
	}

	last := 0
	for i := 1; i <= total; i++ {
		if i != 1 && i != total && (i < current-1 || i > current+1) {
			continue
		}
		if last != 0 && i-last > 1 {
			p.Links = append(p.Links, PageLink{})
		}
		p.Links = append(p.Links, PageLink{Page: i, Current: i == current})
		last = i
	}
	return p
}
