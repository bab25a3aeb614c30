package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/plurk-comet/internal/api"
)

const timestampLayout = "2006-01-02 15:04:05"

// Printer writes plurks, responses and users as styled text. Write errors
// are sticky: after the first one nothing more is written and Err reports it.
type Printer struct {
	out    io.Writer
	styles styles
	width  int
	loc    *time.Location
	err    error
}

// NewPrinter returns a Printer for out. Separators span the terminal width
// and are omitted when out is not a terminal.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:    out,
		styles: newStyles(out),
		width:  TerminalWidth(out),
		loc:    time.Local,
	}
}

// Err returns the first write error, if any.
func (p *Printer) Err() error {
	return p.err
}

func (p *Printer) println(parts ...string) {
	if p.err != nil {
		return
	}
	var kept []string
	for _, s := range parts {
		if s != "" {
			kept = append(kept, s)
		}
	}
	_, p.err = fmt.Fprintln(p.out, strings.Join(kept, " "))
}

func (p *Printer) separator() {
	if p.width > 0 {
		p.println(p.styles.Muted.Render(strings.Repeat("=", p.width)))
	}
}

func (p *Printer) timestamp(t api.Time) string {
	if t.IsZero() {
		return ""
	}
	return p.styles.Timestamp.Render(t.In(p.loc).Format(timestampLayout))
}

func (p *Printer) qualifier(q string) string {
	if q == "" {
		return ""
	}
	return p.styles.Qualifier.Render(q)
}

// header prints "<label> ==> <permalink>".
func (p *Printer) header(label string, plurk api.Plurk) {
	p.println(p.styles.Header.Render(label), "==>", plurk.Permalink())
}

// plurkLine prints the timestamp, owner and qualifier of a plurk.
func (p *Printer) plurkLine(plurk api.Plurk, owner string) {
	p.println(p.timestamp(plurk.Posted), p.styles.Owner.Render(owner), p.qualifier(plurk.Qualifier))
}

// Timeline prints every plurk of tl. Verbose mode gives each plurk a
// permalink header, the full content and a separator; compact mode folds each
// plurk onto one line.
func (p *Printer) Timeline(tl *api.Timeline, verbose bool) error {
	for _, plurk := range tl.Plurks {
		owner := strconv.FormatInt(plurk.OwnerID, 10)
		if u, ok := tl.Owner(plurk); ok {
			owner = u.Name()
		}

		if verbose {
			p.header("Plurk", plurk)
			p.plurkLine(plurk, owner)
			p.println(plurk.ContentRaw)
			p.separator()
			continue
		}
		p.println(
			p.timestamp(plurk.Posted),
			p.styles.Owner.Render(owner),
			p.qualifier(plurk.Qualifier),
			strings.ReplaceAll(plurk.ContentRaw, "\n", "   "),
		)
	}
	return p.err
}

// Me prints the authenticated user's profile.
func (p *Printer) Me(u *api.User) error {
	p.println(p.styles.Owner.Render(u.Name()), p.styles.Muted.Render("@"+u.NickName))
	p.println("ID:", strconv.FormatInt(u.ID, 10))
	if u.FullName != "" {
		p.println("Full name:", u.FullName)
	}
	p.println("Karma:", strconv.FormatFloat(u.Karma, 'f', 2, 64))
	if u.DefaultLang != "" {
		p.println("Language:", u.DefaultLang)
	}
	if u.Premium {
		p.println("Premium: yes")
	}
	if u.VerifiedAccount {
		p.println("Verified: yes")
	}
	return p.err
}
