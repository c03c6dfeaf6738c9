package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const certificateRenderTimeout = 90 * time.Second

// certificateTemplate is the printed completion certificate. Rendered with
// html/template so names are escaped, then printed through headless Chromium.
var certificateTemplate = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Georgia, serif; text-align: center; margin: 0; padding: 60px; }
  .frame { border: 6px double {{.AccentColor}}; padding: 60px 40px; }
  h1 { font-size: 42px; letter-spacing: 4px; margin-bottom: 0; }
  .brand { color: {{.AccentColor}}; font-size: 20px; text-transform: uppercase; letter-spacing: 2px; }
  .name { font-size: 34px; margin: 30px 0 10px; }
  .detail { font-size: 16px; color: #444; }
  .date { margin-top: 50px; font-size: 14px; color: #666; }
</style>
</head>
<body>
<div class="frame">
  <div class="brand">{{.BrandName}}</div>
  <h1>Certificate of Completion</h1>
  <p class="detail">This certifies that</p>
  <p class="name">{{.UserName}}</p>
  <p class="detail">has completed all course content in {{.TenantName}}</p>
  <p class="date">Issued {{.IssuedAt}}</p>
</div>
</body>
</html>`))

type certificateData struct {
	BrandName   string
	TenantName  string
	UserName    string
	AccentColor string
	IssuedAt    string
}

// RenderGate limits how many certificate renders run at once. The
// middleware.RenderLimiter satisfies it.
type RenderGate interface {
	Acquire(userID string) bool
	Release(userID string)
}

// CertificateService renders course completion certificates to PDF with
// headless Chromium
type CertificateService struct {
	courseService *CourseService
	tenantService *TenantService
	userService   *UserService
	gate          RenderGate
}

// NewCertificateService creates a new certificate service
func NewCertificateService(courseService *CourseService, tenantService *TenantService, userService *UserService, gate RenderGate) *CertificateService {
	return &CertificateService{
		courseService: courseService,
		tenantService: tenantService,
		userService:   userService,
		gate:          gate,
	}
}

// Render produces the user's completion certificate PDF. The user must have
// completed every lesson in the tenant's course.
func (s *CertificateService) Render(ctx context.Context, tenantID, userID string) ([]byte, error) {
	percent, err := s.courseService.CompletionPercent(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if percent < 100 {
		return nil, fmt.Errorf("course is %d%% complete, certificate requires 100%%", percent)
	}

	tenant, err := s.tenantService.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	settings, err := s.tenantService.GetSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	user, err := s.userService.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	brand := settings.BrandName
	if brand == "" {
		brand = tenant.Name
	}
	accent := settings.AccentColor
	if accent == "" {
		accent = "#2b6cb0"
	}

	var html strings.Builder
	err = certificateTemplate.Execute(&html, certificateData{
		BrandName:   brand,
		TenantName:  tenant.Name,
		UserName:    user.Name,
		AccentColor: accent,
		IssuedAt:    time.Now().Format("January 2, 2006"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render certificate template: %w", err)
	}

	if s.gate != nil {
		if !s.gate.Acquire(userID) {
			return nil, fmt.Errorf("a certificate render is already in progress, try again shortly")
		}
		defer s.gate.Release(userID)
	}

	pdf, err := s.renderPDF(ctx, html.String())
	if m := GetMetrics(); m != nil {
		m.RecordCertificateRender(err == nil)
	}
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

func (s *CertificateService) renderPDF(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, certificateRenderTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if chromePath := os.Getenv("CHROME_BIN"); chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	// Base64 data URL handles all special characters in the markup
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(html))

	var pdfData []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`document.fonts.ready`, nil),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPaperWidth(11.69).
				WithPaperHeight(8.27).
				WithLandscape(true).
				WithPrintBackground(true).
				WithMarginTop(0.25).
				WithMarginBottom(0.25).
				WithMarginLeft(0.25).
				WithMarginRight(0.25).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render certificate: %w", err)
	}
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("certificate render produced no output")
	}
	return pdfData, nil
}
