package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/paulmach/orb"

	"github.com/tingold/district-atlas/phc"
	"github.com/tingold/district-atlas/session"
	"github.com/tingold/district-atlas/stats"
)

const help = `commands:
  categories                 list statistic categories
  load <category>            fetch a category and show the region table
  fields                     list sub-fields of the loaded category
  field <name|all>           narrow the table to one sub-field
  district <name>            show one district
  click <lon> <lat>          show the district containing a point
  popup [district]           summarise a district
  reset                      back to the whole region
  districts                  list region districts
  phc <district>             list primary health centres
  save <category>            enter a new row field by field
  edit <category> <rowId>    replace an existing row
  delete <rowId>             delete a row of the loaded category
  state                      show load state and selection
  help                       this text
  exit                       quit`

type repl struct {
	ctl *session.Controller
	phc *phc.Directory
	in  *bufio.Scanner
	out io.Writer
}

func newREPL(ctl *session.Controller, in io.Reader, out io.Writer) *repl {
	return &repl{ctl: ctl, in: bufio.NewScanner(in), out: out}
}

func (r *repl) run(ctx context.Context) {
	fmt.Fprintln(r.out, "district atlas, type help for commands")
	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return
		}
		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		if cmd == "exit" || cmd == "quit" {
			return
		}
		if err := r.exec(ctx, cmd, arg); err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
		}
	}
}

func (r *repl) exec(ctx context.Context, cmd, arg string) error {
	switch cmd {
	case "help":
		fmt.Fprintln(r.out, help)
	case "categories":
		for _, c := range stats.Categories {
			fmt.Fprintf(r.out, "  %s (%s)\n", c, stats.CategoryIcon(c))
		}
	case "load":
		fmt.Fprintln(r.out, "Loading...")
		t, err := r.ctl.LoadCategory(ctx, arg)
		if err != nil {
			return err
		}
		r.table(t)
	case "fields":
		fields, err := r.ctl.SubFields()
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, "  all")
		for _, f := range fields {
			fmt.Fprintf(r.out, "  %s (%s)\n", f, stats.FieldIcon(f))
		}
	case "field":
		t, err := r.ctl.SelectSubField(arg)
		if err != nil {
			return err
		}
		r.table(t)
	case "district":
		t, err := r.ctl.ShowDistrict(arg)
		if err != nil {
			return err
		}
		r.table(t)
	case "click":
		parts := strings.Fields(arg)
		if len(parts) != 2 {
			return errors.New("usage: click <lon> <lat>")
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return err
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return err
		}
		t, err := r.ctl.ClickPoint(orb.Point{lon, lat})
		if err != nil {
			return err
		}
		r.table(t)
	case "popup":
		p, err := r.ctl.Popup(arg)
		if err != nil {
			return err
		}
		r.popup(p)
	case "reset":
		t, err := r.ctl.Reset()
		if err != nil {
			return err
		}
		r.table(t)
	case "districts":
		region := r.ctl.Region()
		if region == nil {
			return session.ErrNoRegion
		}
		fmt.Fprintln(r.out, strings.Join(region.Names(), ", "))
	case "phc":
		r.phcListing(arg)
	case "save":
		return r.save(ctx, arg, "")
	case "edit":
		i := strings.LastIndex(arg, " ")
		if i < 0 {
			return errors.New("usage: edit <category> <rowId>")
		}
		return r.save(ctx, strings.TrimSpace(arg[:i]), strings.TrimSpace(arg[i+1:]))
	case "delete":
		cat := r.ctl.Selection().Category
		if cat == "" {
			return session.ErrNoCategory
		}
		msg, err := r.ctl.Delete(ctx, cat, arg)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, msg)
	case "state":
		st, err := r.ctl.State()
		sel := r.ctl.Selection()
		fmt.Fprintf(r.out, "state=%s category=%q field=%q district=%q\n", st, sel.Category, sel.SubField, r.ctl.ActiveDistrict())
		if err != nil {
			fmt.Fprintf(r.out, "last error: %v\n", err)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// save prompts for every form field of category and writes the row.
func (r *repl) save(ctx context.Context, category, rowID string) error {
	fields, err := stats.FormFields(category)
	if err != nil {
		return err
	}
	form := make(map[string]string, len(fields))
	for _, f := range fields {
		prompt := f.Label
		if f.Kind == stats.InputSelect && len(f.Options) <= 4 {
			prompt += " [" + strings.Join(f.Options, "|") + "]"
		}
		fmt.Fprintf(r.out, "  %s: ", prompt)
		if !r.in.Scan() {
			return io.ErrUnexpectedEOF
		}
		form[f.Name] = strings.TrimSpace(r.in.Text())
	}
	rec, err := stats.NewRecord(category, rowID, form)
	if err != nil {
		return err
	}
	msg, err := r.ctl.Save(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, msg)
	return nil
}

func (r *repl) table(t *stats.Table) {
	fmt.Fprintln(r.out, t.Title)
	if t.Empty() {
		fmt.Fprintln(r.out, t.Notice)
		return
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func (r *repl) popup(p *stats.Popup) {
	fmt.Fprintf(r.out, "%s [%s]\n", p.District, p.Icon)
	if p.Notice != "" {
		fmt.Fprintln(r.out, p.Notice)
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	for _, e := range p.Entries {
		fmt.Fprintf(tw, "  %s\t%s\t%v\n", e.Icon, e.Label, e.Value)
	}
	tw.Flush()
}

func (r *repl) phcListing(district string) {
	entries := r.phc.ForDistrict(district)
	fmt.Fprintln(r.out, r.phc.Heading(district))
	if len(entries) == 0 {
		fmt.Fprintln(r.out, phc.NoDataNotice)
		return
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Mandal\tPHC")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Mandal, e.PHC)
	}
	tw.Flush()
}
