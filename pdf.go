package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10  // Margin in mm
	pdfLineHeight = 5   // Line height in mm
	pdfFontSize   = 9
)

// generatePDF saves the listing and summary as a PDF at outputPath.
func generatePDF(r *Report, withTokens bool, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create PDF %s: %w", outputPath, err)
	}
	if err := writePDF(r, withTokens, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	return nil
}

// writePDF renders the report with the core Courier font. The core fonts
// only cover cp1252, so the summary uses English labels here.
func writePDF(r *Report, withTokens bool, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle("srcstat "+describeRoot(r), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr("Root: "+r.Root), "", "L", false)
	pdf.Ln(pdfLineHeight / 2)

	var listing strings.Builder
	for _, e := range r.Entries {
		listing.WriteString(formatEntry(e))
		listing.WriteString("\n")
	}
	pdf.SetFont("Courier", "", pdfFontSize)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr(listing.String()), "", "L", false)
	pdf.Ln(pdfLineHeight)

	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, "--- Summary ---", "", "L", false)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	summary := fmt.Sprintf("Total files: %d\nTotal lines: %d", r.Summary.Files, r.Summary.Lines)
	if withTokens {
		summary += fmt.Sprintf("\nTotal tokens: %d", r.Summary.Tokens)
	}
	if len(r.Failed) > 0 {
		summary += fmt.Sprintf("\nPaths failed to process: %d", len(r.Failed))
	}
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, summary, "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}
