package printing

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DocumentData is everything the invoice layout prints. Free-text
// description and attachment are intentionally absent from the document.
type DocumentData struct {
	Lang      string
	Company   string
	Number    string
	Status    string
	IssueDate time.Time
	DueDate   time.Time
	Client    DocumentClient
	Lines     []DocumentLine
	Subtotal  decimal.Decimal
	TaxTotal  decimal.Decimal
	Total     decimal.Decimal
	Notes     string
}

// DocumentClient is the billed party block
type DocumentClient struct {
	Name           string
	DocumentType   string
	DocumentNumber string
	Email          string
	Phone          string
}

// DocumentLine is one printed item row
type DocumentLine struct {
	Position  int
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Total     decimal.Decimal
}

// NewDocumentData projects a hydrated invoice onto the printed layout
func NewDocumentData(inv *invoice.Invoice, company string) *DocumentData {
	d := &DocumentData{
		Company:   company,
		Number:    inv.InvoiceNumber,
		Status:    string(inv.Status),
		IssueDate: inv.IssueDate,
		DueDate:   inv.DueDate,
		Total:     inv.TotalAmount,
		Notes:     inv.AdditionalNotes,
		Subtotal:  decimal.Zero,
		TaxTotal:  decimal.Zero,
	}
	if inv.Client != nil {
		d.Client = DocumentClient{
			Name:           inv.Client.FullName(),
			DocumentType:   inv.Client.DocumentType,
			DocumentNumber: inv.Client.DocumentNumber,
			Email:          inv.Client.Email,
			Phone:          inv.Client.Phone,
		}
	}
	d.Lines = make([]DocumentLine, len(inv.Items))
	for i, item := range inv.Items {
		d.Lines[i] = DocumentLine{
			Position:  i + 1,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			TaxRate:   item.TaxRate,
			Total:     item.TotalAmount,
		}
		d.Subtotal = d.Subtotal.Add(item.Subtotal())
		d.TaxTotal = d.TaxTotal.Add(item.TaxAmount)
	}
	return d
}

// TemplateEngine renders DocumentData to HTML with locale-aware formatting.
// Printers and casers are stateful, so each call builds its own.
type TemplateEngine struct {
	tmpl *template.Template
	lang language.Tag
}

// NewTemplateEngine parses the embedded invoice layout. locale is a BCP 47
// tag; unparsable tags fall back to English.
func NewTemplateEngine(locale string) (*TemplateEngine, error) {
	lang, err := language.Parse(locale)
	if err != nil || locale == "" {
		lang = language.English
	}
	e := &TemplateEngine{lang: lang}

	funcs := template.FuncMap{
		"money":   e.formatMoney,
		"percent": e.formatPercent,
		"date":    formatDate,
		"title":   e.title,
	}
	tmpl, err := template.New("invoice.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/invoice.html.tmpl")
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to parse invoice template", err)
	}
	e.tmpl = tmpl
	return e, nil
}

// Render executes the invoice layout
func (e *TemplateEngine) Render(data *DocumentData) (string, error) {
	if data.Lang == "" {
		data.Lang = e.lang.String()
	}
	var buf bytes.Buffer
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to execute invoice template", err)
	}
	return buf.String(), nil
}

// formatMoney renders 1234.5 as "$1,234.50" using the locale's grouping
func (e *TemplateEngine) formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + "$" + message.NewPrinter(e.lang).Sprint(number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
}

// formatPercent renders 19 as "19.0%"
func (e *TemplateEngine) formatPercent(d decimal.Decimal) string {
	return message.NewPrinter(e.lang).Sprint(number.Decimal(d.InexactFloat64(), number.Scale(1))) + "%"
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 02, 2006")
}

func (e *TemplateEngine) title(s string) string {
	return cases.Title(e.lang).String(s)
}
