package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ArchiveKind string

const (
	ArchiveImport ArchiveKind = "imports"
	ArchiveExport ArchiveKind = "exports"

	tdfContentType = "application/xml"
)

// TDFArchive keeps a copy of every TDF file that passes through the service.
type TDFArchive struct {
	uploader FileUploader
	now      func() time.Time
}

func NewTDFArchive(uploader FileUploader) *TDFArchive {
	return &TDFArchive{uploader: uploader, now: time.Now}
}

// Key builds tdf/<kind>/<tournament id>/<yyyymmddThhmmss>-<uuid>.tdf.
func (a *TDFArchive) Key(kind ArchiveKind, tournamentID int) string {
	return fmt.Sprintf("tdf/%s/%d/%s-%s.tdf",
		kind, tournamentID, a.now().UTC().Format("20060102T150405"), uuid.NewString())
}

func (a *TDFArchive) Store(ctx context.Context, kind ArchiveKind, tournamentID int, data []byte) (*UploadResult, error) {
	key := a.Key(kind, tournamentID)
	res, err := a.uploader.Upload(ctx, key, tdfContentType, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to archive %s for tournament %d: %w", kind, tournamentID, err)
	}
	return res, nil
}
