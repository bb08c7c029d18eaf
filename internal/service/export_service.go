package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/balikbayani/portal-api/internal/dto"
	"github.com/balikbayani/portal-api/internal/models"
	appErrors "github.com/balikbayani/portal-api/pkg/errors"
	"github.com/balikbayani/portal-api/pkg/export"
)

type exportApplicationLister interface {
	List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, int, error)
}

// ExportFile is a rendered export ready to stream to the client.
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ExportService renders application listings as CSV or PDF reports.
type ExportService struct {
	apps   exportApplicationLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(apps exportApplicationLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		apps:   apps,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var exportHeaders = []string{"Control Number", "Kind", "Status", "Needs Correction", "Flagged Fields", "Created At"}

// ExportApplications renders matching applications in the requested format.
// Format must be "csv" or "pdf".
func (s *ExportService) ExportApplications(ctx context.Context, req dto.ListApplicationsRequest, format string, actor *models.JWTClaims) (*ExportFile, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsStaffRole() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff may export reports")
	}

	format = strings.ToLower(strings.TrimSpace(format))
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	filter := models.ApplicationFilter{
		NeedsCorrection: req.NeedsCorrection,
		Search:          req.Search,
		Page:            1,
		PageSize:        100,
	}
	if kind := strings.TrimSpace(req.Kind); kind != "" {
		k := models.ApplicationKind(kind)
		if !k.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown application kind %q", kind))
		}
		filter.Kind = &k
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		st := models.ApplicationStatus(status)
		filter.Status = &st
	}

	apps, total, err := s.apps.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applications for export")
	}
	if total > len(apps) {
		s.logger.Warn("export truncated to first page",
			zap.Int("total", total), zap.Int("exported", len(apps)))
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(apps))}
	for _, app := range apps {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Control Number":   app.ControlNumber,
			"Kind":             string(app.Kind),
			"Status":           string(app.Status),
			"Needs Correction": fmt.Sprintf("%t", app.NeedsCorrection),
			"Flagged Fields":   strings.Join(app.CorrectionFields, ", "),
			"Created At":       app.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	switch format {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportFile{FileName: "applications.csv", ContentType: "text/csv", Content: content}, nil
	default:
		content, err := s.pdf.Render(dataset, "Application Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportFile{FileName: "applications.pdf", ContentType: "application/pdf", Content: content}, nil
	}
}
