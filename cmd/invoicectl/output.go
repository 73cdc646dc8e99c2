package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	invoiceapp "github.com/infinity-9427/invoicing/internal/application/invoice"
	printingapp "github.com/infinity-9427/invoicing/internal/application/printing"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
)

// printer writes command results as aligned text or JSON
type printer struct {
	json bool
	out  io.Writer
	err  io.Writer
}

func newPrinter(opts *RootOptions) *printer {
	return &printer{json: opts.Format == "json", out: os.Stdout, err: os.Stderr}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table(fn func(w *tabwriter.Writer)) error {
	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fn(w)
	return w.Flush()
}

func (p *printer) invoices(page *shared.Paginated[invoiceapp.InvoiceResponse]) error {
	if p.json {
		return p.encode(page)
	}
	return p.table(func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "ID\tNUMBER\tCLIENT\tISSUED\tDUE\tSTATUS\tTOTAL\tPDF")
		for _, inv := range page.Items {
			client := ""
			if inv.Client != nil {
				client = inv.Client.FullName()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
				inv.ID, inv.InvoiceNumber, client, inv.IssueDate, inv.DueDate,
				inv.Status, inv.TotalAmount.StringFixed(2), inv.HasPDF)
		}
		fmt.Fprintf(w, "\npage %d of %d, %d invoices\n", page.Page, page.TotalPages, page.Total)
	})
}

func (p *printer) invoice(inv *invoiceapp.InvoiceResponse) error {
	if p.json {
		return p.encode(inv)
	}
	return p.table(func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Number:\t%s\n", inv.InvoiceNumber)
		fmt.Fprintf(w, "ID:\t%s\n", inv.ID)
		if inv.Client != nil {
			fmt.Fprintf(w, "Client:\t%s\n", inv.Client.FullName())
		}
		fmt.Fprintf(w, "Status:\t%s\n", inv.Status)
		fmt.Fprintf(w, "Issued:\t%s\n", inv.IssueDate)
		fmt.Fprintf(w, "Due:\t%s\n", inv.DueDate)
		if inv.IsOverdue {
			fmt.Fprintf(w, "Days overdue:\t%d\n", inv.DaysOverdue)
		}
		fmt.Fprintf(w, "Total:\t%s\n", inv.TotalAmount.StringFixed(2))
		if inv.PDFURL != nil {
			fmt.Fprintf(w, "PDF:\t%s\n", *inv.PDFURL)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ITEM\tQTY\tUNIT\tTAX %\tTAX\tTOTAL")
		for _, item := range inv.Items {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
				item.Name, item.Quantity, item.UnitPrice.StringFixed(2), item.TaxRate.String(),
				item.TaxAmount.StringFixed(2), item.TotalAmount.StringFixed(2))
		}
	})
}

func (p *printer) sweep(result *invoiceapp.SweepResult) error {
	if p.json {
		return p.encode(result)
	}
	if result.Count == 0 {
		return p.message("no invoices became overdue")
	}
	return p.table(func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "NUMBER\tDUE\tDAYS OVERDUE\tTOTAL")
		for _, inv := range result.Invoices {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", inv.InvoiceNumber, inv.DueDate, inv.DaysOverdue, inv.TotalAmount.StringFixed(2))
		}
		fmt.Fprintf(w, "\n%d invoices marked overdue\n", result.Count)
	})
}

func (p *printer) pdf(info *printingapp.PDFInfo) error {
	if p.json {
		return p.encode(info)
	}
	location, size := "-", "-"
	if info.PDFURL != nil {
		location = *info.PDFURL
	}
	if info.PDFSize != nil {
		size = *info.PDFSize
	}
	_, err := fmt.Fprintf(p.out, "%s\t%s\t%s\n", info.InvoiceID, size, location)
	return err
}

func (p *printer) stats(s *invoice.Statistics) error {
	if p.json {
		return p.encode(s)
	}
	return p.table(func(w *tabwriter.Writer) {
		fmt.Fprintln(w, "STATUS\tCOUNT\tAMOUNT")
		fmt.Fprintf(w, "pending\t%d\t%s\n", s.PendingInvoices, s.PendingAmount.StringFixed(2))
		fmt.Fprintf(w, "paid\t%d\t%s\n", s.PaidInvoices, s.PaidAmount.StringFixed(2))
		fmt.Fprintf(w, "overdue\t%d\t%s\n", s.OverdueInvoices, s.OverdueAmount.StringFixed(2))
		fmt.Fprintf(w, "total\t%d\t%s\n", s.TotalInvoices, s.TotalAmount.StringFixed(2))
	})
}

func (p *printer) failure(arg string, err error) {
	msg := err.Error()
	if de, ok := shared.AsDomainError(err); ok {
		msg = de.Code + ": " + de.Message
	}
	fmt.Fprintf(p.err, "%s\tfailed: %s\n", arg, msg)
}

func (p *printer) message(msg string) error {
	if p.json {
		return p.encode(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(p.out, msg)
	return err
}
