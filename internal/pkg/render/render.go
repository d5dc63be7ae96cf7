// Package render prints portfolio data as terminal tables.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/lipgloss"

	"token_portfolio/internal/domain/entity"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A9E851"))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#A1A1AA"))

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA"))

	PositiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	NegativeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717A"))

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5F87"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#27272A")).
			Padding(0, 1)
)

// USD formats an amount as US dollars, e.g. $1,234.56. Sub-cent prices keep more precision.
func USD(amount float64) string {
	if amount != 0 && amount < 0.01 && amount > -0.01 {
		return fmt.Sprintf("$%.6f", amount)
	}
	return money.New(int64(math.Round(amount*100)), money.USD).Display()
}

// Percent formats a 24h change with an explicit sign.
func Percent(p float64) string {
	return fmt.Sprintf("%+.2f%%", p)
}

// Change colours a percentage by direction.
func Change(p float64) string {
	switch {
	case p > 0:
		return PositiveStyle.Render(Percent(p))
	case p < 0:
		return NegativeStyle.Render(Percent(p))
	default:
		return MutedStyle.Render(Percent(p))
	}
}

// Holdings trims trailing zeros from a quantity.
func Holdings(h float64) string {
	s := fmt.Sprintf("%.8f", h)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}

// LastUpdated renders the refresh timestamp, or "never".
func LastUpdated(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("15:04:05 02 Jan 2006")
}

type column struct {
	title string
	width int
	right bool
}

func cell(c column, text string) string {
	style := lipgloss.NewStyle().Width(c.width)
	if c.right {
		style = style.Align(lipgloss.Right)
	}
	return style.Render(text)
}

func row(cols []column, values []string) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = cell(c, values[i])
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func header(cols []column) string {
	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.title
	}
	return HeaderStyle.Render(row(cols, titles))
}

var watchlistColumns = []column{
	{title: "Token", width: 28},
	{title: "Price", width: 16, right: true},
	{title: "24h %", width: 10, right: true},
	{title: "Holdings", width: 16, right: true},
	{title: "Value", width: 16, right: true},
}

// Portfolio writes the total, the refresh state and one page of the watchlist.
func Portfolio(w io.Writer, state entity.PortfolioState, page entity.WatchlistPage) {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Portfolio Total") + "\n")
	b.WriteString(ValueStyle.Render(USD(state.PortfolioTotal)) + "\n")
	b.WriteString(MutedStyle.Render("Last updated: "+LastUpdated(state.LastUpdated)) + "\n")
	if state.Error != "" {
		b.WriteString(ErrorStyle.Render(state.Error) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(header(watchlistColumns) + "\n")
	for _, e := range page.Items {
		b.WriteString(row(watchlistColumns, []string{
			fmt.Sprintf("%s (%s)", e.Name, e.Symbol),
			USD(e.CurrentPrice),
			Change(e.PriceChangePercentage24h),
			Holdings(e.Holdings),
			USD(e.Value),
		}) + "\n")
	}
	if page.TotalItems == 0 {
		b.WriteString(MutedStyle.Render("Watchlist is empty. Add tokens with `portfolio add <id>`.") + "\n")
	} else {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%d - %d of %d results    %d of %d pages",
			page.StartItem, page.EndItem, page.TotalItems, page.Page, page.TotalPages)) + "\n")
	}
	fmt.Fprint(w, BoxStyle.Render(strings.TrimRight(b.String(), "\n"))+"\n")
}

var allocationColumns = []column{
	{title: "Token", width: 28},
	{title: "Value", width: 16, right: true},
	{title: "Share", width: 10, right: true},
}

// Allocation writes each token's share of the total.
func Allocation(w io.Writer, slices []entity.AllocationSlice) {
	fmt.Fprintln(w, header(allocationColumns))
	for _, s := range slices {
		fmt.Fprintln(w, row(allocationColumns, []string{
			fmt.Sprintf("%s (%s)", s.Name, s.Symbol),
			USD(s.Value),
			fmt.Sprintf("%.1f%%", s.Percentage),
		}))
	}
}

var tokenColumns = []column{
	{title: "ID", width: 24},
	{title: "Token", width: 28},
	{title: "Price", width: 16, right: true},
	{title: "24h %", width: 10, right: true},
}

// Tokens writes search or trending results.
func Tokens(w io.Writer, title string, tokens []entity.Token) {
	fmt.Fprintln(w, TitleStyle.Render(title))
	if len(tokens) == 0 {
		fmt.Fprintln(w, MutedStyle.Render("No tokens found."))
		return
	}
	fmt.Fprintln(w, header(tokenColumns))
	for _, t := range tokens {
		fmt.Fprintln(w, row(tokenColumns, []string{
			t.ID,
			fmt.Sprintf("%s (%s)", t.Name, t.Symbol),
			USD(t.CurrentPrice),
			Change(t.PriceChangePercentage24h),
		}))
	}
}

// Quotes writes one line per requested id; ids the API did not know are marked.
func Quotes(w io.Writer, ids []string, prices map[string]entity.CurrentPrice) {
	for _, id := range ids {
		p, ok := prices[id]
		if !ok {
			fmt.Fprintf(w, "%s  %s\n", HeaderStyle.Render(id), MutedStyle.Render("unknown"))
			continue
		}
		fmt.Fprintf(w, "%s  %s  %s\n", HeaderStyle.Render(id), USD(p.Price), Change(p.Change24h))
	}
}

// History writes a price series, one sample per line.
func History(w io.Writer, id string, points []entity.PricePoint) {
	fmt.Fprintln(w, TitleStyle.Render("Price history: "+id))
	for _, p := range points {
		ts := time.UnixMilli(p.TimestampMs).Local().Format("2006-01-02 15:04")
		fmt.Fprintf(w, "%s  %s\n", MutedStyle.Render(ts), USD(p.Price))
	}
}

// Status writes wallet and persistence status.
func Status(w io.Writer, status entity.WalletStatus, refreshState entity.RefreshState, refreshMessage string) {
	wallet := "not connected"
	if status.Connected {
		wallet = status.ShortAddress
	}
	persistence := PositiveStyle.Render("working")
	if !status.PersistenceWorking {
		persistence = ErrorStyle.Render("unavailable")
	}
	lines := []string{
		HeaderStyle.Render("Wallet:      ") + wallet,
		HeaderStyle.Render("Persistence: ") + persistence,
		HeaderStyle.Render("Tokens:      ") + fmt.Sprint(status.WatchlistCount),
		HeaderStyle.Render("Total:       ") + USD(status.PortfolioTotal),
		HeaderStyle.Render("Refresh:     ") + string(refreshState),
	}
	if refreshMessage != "" {
		lines = append(lines, ErrorStyle.Render(refreshMessage))
	}
	lines = append(lines, MutedStyle.Render(status.Message))
	fmt.Fprintln(w, BoxStyle.Render(strings.Join(lines, "\n")))
}
