// Package printing turns invoices into PDF documents: an html/template
// invoice layout rendered to PDF by headless Chrome (chromedp) or the
// wkhtmltopdf binary.
package printing
