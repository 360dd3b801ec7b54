package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FezAmir/projectfinal-api/internal/models"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
	"github.com/FezAmir/projectfinal-api/pkg/export"
)

type rosterExporter interface {
	Render(data export.Dataset) ([]byte, error)
}

type rosterPDFExporter interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered roster file.
type ExportResult struct {
	Content     []byte
	Filename    string
	ContentType string
}

// ExportService renders participant rosters to CSV or PDF for a
// competition's moderators.
type ExportService struct {
	participations *ParticipationService
	csv            rosterExporter
	pdf            rosterPDFExporter
	maxRows        int
	logger         *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(participations *ParticipationService, csv rosterExporter, pdf rosterPDFExporter, maxRows int, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 1000
	}
	return &ExportService{participations: participations, csv: csv, pdf: pdf, maxRows: maxRows, logger: logger}
}

var rosterHeaders = []string{"Student", "Email", "Status", "Notes", "Registered At"}

// Roster renders the participant list of one competition. Authorization is
// delegated to the participation listing (admin or owning organizer).
func (s *ExportService) Roster(ctx context.Context, actor models.Actor, competitionID, format string) (*ExportResult, error) {
	participants, err := s.participations.ListByCompetition(ctx, actor, competitionID, "")
	if err != nil {
		return nil, err
	}
	if len(participants) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("roster exceeds the %d row export limit", s.maxRows))
	}

	dataset := export.Dataset{Headers: rosterHeaders}
	title := "participants"
	for _, p := range participants {
		if title == "participants" && p.CompetitionTitle != "" {
			title = p.CompetitionTitle
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":       p.StudentName,
			"Email":         p.StudentEmail,
			"Status":        string(p.Status),
			"Notes":         p.Notes,
			"Registered At": p.CreatedAt.Format(time.RFC3339),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch strings.ToLower(format) {
	case "", "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv roster")
		}
		return &ExportResult{
			Content:     content,
			Filename:    fmt.Sprintf("roster-%s-%s.csv", competitionID, stamp),
			ContentType: "text/csv",
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf roster")
		}
		return &ExportResult{
			Content:     content,
			Filename:    fmt.Sprintf("roster-%s-%s.pdf", competitionID, stamp),
			ContentType: "application/pdf",
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
