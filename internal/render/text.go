package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"

	"futures-monitor/internal/engine"
	"futures-monitor/internal/paginate"
	"futures-monitor/internal/present"
)

// TableString renders one page of a table, or its placeholder when the
// table has no rows.
func TableString(table present.Table, page paginate.Page) string {
	if table.IsEmpty() {
		return table.Empty + "\n"
	}
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	tw.SetHeader(table.Columns)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.AppendBulk(page.Rows)
	tw.Render()
	return b.String()
}

// PageLine describes the page controls of a paginated table. It is empty
// when the table fits on one page.
func PageLine(table present.Table, page paginate.Page, loc *present.Locale) string {
	if !page.Controls {
		return ""
	}
	return loc.Sprintf(loc.PageSelectFmt, table.Label) + ": " + loc.Sprintf(loc.PageFmt, page.Current, page.Total)
}

// MetricsLine lays the account metrics out on one line.
func MetricsLine(view present.AccountView) string {
	parts := make([]string, 0, len(view.Metrics))
	for _, m := range view.Metrics {
		parts = append(parts, m.Label+": "+m.Value)
	}
	return strings.Join(parts, "    ")
}

// Snapshot renders a full refresh as plain text, paginating every table
// through pages.
func Snapshot(snap engine.Snapshot, pages *paginate.State, pageSize int, loc *present.Locale) string {
	var b strings.Builder
	b.WriteString(loc.AccountHeading + "\n")
	b.WriteString(MetricsLine(snap.Account) + "\n\n")
	for _, table := range []present.Table{snap.Positions, snap.Orders, snap.Trades} {
		page := pages.Paginate(table, pageSize)
		b.WriteString(table.Title + "\n")
		b.WriteString(TableString(table, page))
		if line := PageLine(table, page, loc); line != "" {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(loc.Sprintf(loc.RefreshedFmt, present.FormatTime(snap.RefreshedAt, snap.RefreshedAt.Location())) + "\n")
	return b.String()
}

// Printer is an engine.Sink writing plain text, for non-interactive output.
type Printer struct {
	Out      io.Writer
	Locale   *present.Locale
	PageSize int

	mu    sync.Mutex
	pages *paginate.State
}

func NewPrinter(out io.Writer, loc *present.Locale, pageSize int) *Printer {
	return &Printer{Out: out, Locale: loc, PageSize: pageSize, pages: paginate.NewState()}
}

func (p *Printer) Render(snap engine.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprint(p.Out, Snapshot(snap, p.pages, p.PageSize, p.Locale))
	fmt.Fprintln(p.Out, strings.Repeat("─", 40))
}

func (p *Printer) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.Out, present.FailureMessage(err, p.Locale))
}

// Idle prints the hint shown while credentials are missing.
func (p *Printer) Idle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.Out, p.Locale.IdleHint)
}

var _ engine.Sink = (*Printer)(nil)
