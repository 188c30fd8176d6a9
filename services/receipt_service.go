package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	config "github.com/ndegwakip/huduma_hub/configs"
	"github.com/ndegwakip/huduma_hub/models"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: 'Helvetica Neue', Arial, sans-serif; color: #1f2937; margin: 0; padding: 48px; }
  .header { border-bottom: 3px solid #0d9488; padding-bottom: 16px; margin-bottom: 32px; }
  .header h1 { margin: 0; color: #0d9488; font-size: 28px; }
  .header p { margin: 4px 0 0; color: #6b7280; }
  .meta { display: flex; justify-content: space-between; margin-bottom: 32px; }
  .meta div p { margin: 2px 0; font-size: 14px; }
  .label { color: #6b7280; text-transform: uppercase; font-size: 11px; letter-spacing: 1px; }
  table { width: 100%; border-collapse: collapse; margin-bottom: 32px; }
  th { text-align: left; font-size: 12px; color: #6b7280; text-transform: uppercase; border-bottom: 1px solid #e5e7eb; padding: 8px 0; }
  td { padding: 12px 0; border-bottom: 1px solid #f3f4f6; font-size: 14px; }
  td.amount, th.amount { text-align: right; }
  .total td { font-weight: bold; font-size: 16px; border-bottom: none; border-top: 2px solid #1f2937; }
  .footer { margin-top: 48px; font-size: 12px; color: #9ca3af; text-align: center; }
</style>
</head>
<body>
  <div class="header">
    <h1>Huduma Hub</h1>
    <p>Official Booking Receipt</p>
  </div>
  <div class="meta">
    <div>
      <p class="label">Billed To</p>
      <p>{{.CustomerName}}</p>
    </div>
    <div>
      <p class="label">Receipt Details</p>
      <p>Booking Ref: {{.Reference}}</p>
      <p>Paid On: {{.PaidOn}}</p>
    </div>
  </div>
  <table>
    <tr><th>Description</th><th class="amount">Amount ({{.Currency}})</th></tr>
    <tr><td>{{.ServiceName}}</td><td class="amount">{{.BaseAmount}}</td></tr>
    <tr><td>Service Fee</td><td class="amount">{{.ServiceFee}}</td></tr>
    {{if .Discount}}<tr><td>Discount</td><td class="amount">-{{.Discount}}</td></tr>{{end}}
    <tr class="total"><td>Total Paid</td><td class="amount">{{.Total}}</td></tr>
  </table>
  <div class="footer">
    <p>Thank you for booking with Huduma Hub. This receipt was generated automatically.</p>
  </div>
</body>
</html>`))

// formatCents renders a minor-unit amount as a decimal string, e.g. 150050 -> "1,500.50".
func formatCents(cents int64) string {
	whole := cents / 100
	frac := cents % 100
	if frac < 0 {
		frac = -frac
	}

	digits := fmt.Sprintf("%d", whole)
	var grouped bytes.Buffer
	prefix := ""
	if digits[0] == '-' {
		prefix = "-"
		digits = digits[1:]
	}
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(d)
	}
	return fmt.Sprintf("%s%s.%02d", prefix, grouped.String(), frac)
}

// GenerateReceipt renders a paid booking's receipt to PDF and uploads it to
// Cloudinary, returning the hosted URL. All display data is passed in by the
// caller so this stays off the request path's transaction.
func GenerateReceipt(booking *models.Booking, customerName, serviceName string, paidAt time.Time) (string, error) {
	htmlContent, err := renderReceiptHTML(booking, customerName, serviceName, paidAt)
	if err != nil {
		return "", fmt.Errorf("failed to render receipt HTML: %w", err)
	}

	pdfBytes, err := renderPDF(htmlContent)
	if err != nil {
		return "", fmt.Errorf("failed to render receipt PDF: %w", err)
	}

	url, err := uploadReceipt(pdfBytes, booking.Reference)
	if err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}
	return url, nil
}

func renderReceiptHTML(booking *models.Booking, customerName, serviceName string, paidAt time.Time) (string, error) {
	data := struct {
		CustomerName string
		Reference    string
		PaidOn       string
		ServiceName  string
		Currency     string
		BaseAmount   string
		ServiceFee   string
		Discount     string
		Total        string
	}{
		CustomerName: customerName,
		Reference:    booking.Reference,
		PaidOn:       paidAt.Format("January 2, 2006"),
		ServiceName:  serviceName,
		Currency:     booking.Currency,
		BaseAmount:   formatCents(booking.TotalAmountCents),
		ServiceFee:   formatCents(booking.ServiceFeeCents),
		Total:        formatCents(booking.FinalAmountCents),
	}
	if booking.DiscountCents > 0 {
		data.Discount = formatCents(booking.DiscountCents)
	}

	var rendered bytes.Buffer
	if err := receiptTemplate.Execute(&rendered, data); err != nil {
		return "", err
	}
	return rendered.String(), nil
}

func renderPDF(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadReceipt(fileBytes []byte, reference string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		PublicID:     fmt.Sprintf("receipts/%s_%s", reference, uuid.New().String()),
		Folder:       "huduma_hub_receipts",
		ResourceType: "raw",
	}

	uploadResult, err := cld.Upload.Upload(ctx, bytes.NewReader(fileBytes), uploadParams)
	if err != nil {
		return "", err
	}

	return uploadResult.SecureURL, nil
}
