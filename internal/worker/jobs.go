package worker

import (
	"context"

	"github.com/google/uuid"
	"github.com/vytor/snapword/internal/logger"
)

// CardImporter runs a tracked word list import. It is implemented by the
// import service; declaring it here keeps this package free of services.
type CardImporter interface {
	RunJob(ctx context.Context, jobID uuid.UUID, fileName string, data []byte) error
}

// ImportCardsJob creates cards from an uploaded word list.
type ImportCardsJob struct {
	Importer CardImporter
	JobID    uuid.UUID
	FileName string
	Data     []byte
}

func (j *ImportCardsJob) Name() string { return "import_cards" }

func (j *ImportCardsJob) Run(ctx context.Context) error {
	log := logger.FromContext(ctx).WithFields(map[string]any{
		"import_job_id": j.JobID,
		"file":          j.FileName,
	})
	log.Info("starting background import (%d bytes)", len(j.Data))
	return j.Importer.RunJob(logger.NewContext(ctx, log), j.JobID, j.FileName, j.Data)
}
