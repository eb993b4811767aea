package record

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/importer"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrRecordExists = errors.New("a record already exists for this student, subject and field")
	ErrUnauthorized = errors.New("an authenticated session is required")
)

type (
	Repository interface {
		QueryRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		// CreateRecord returns ErrRecordExists when (student, subject, field) is taken.
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		// UpdateRecord returns ErrNotFound when rec.ID is unknown.
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
	}

	ServiceInterface interface {
		Query(ctx context.Context, filter QueryFilter) ([]Record, error)
		// Existing returns the records held for filter, keyed by student ID.
		Existing(ctx context.Context, filter QueryFilter) (map[string]importer.Existing, error)
		// Save persists batch one record at a time. The records stored for the batch are read again
		// first, so a batch reconciled earlier compares against current values. Records holding the
		// default value or their current value are left alone. When any record would change an
		// existing value and sess is not elevated, nothing is written and a *PrivilegeError is returned.
		Save(ctx context.Context, sess core.Session, batch Batch) (SaveResult, error)
	}

	service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, logger core.Logger) ServiceInterface {
	return &service{repo: repo, logger: logger}
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *service) Existing(ctx context.Context, filter QueryFilter) (map[string]importer.Existing, error) {
	records, err := svc.repo.QueryRecords(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	existing := make(map[string]importer.Existing, len(records))
	for _, rec := range records {
		existing[rec.StudentID] = importer.Existing{RecordID: rec.ID, Value: rec.Value}
	}
	return existing, nil
}

func (svc *service) Save(ctx context.Context, sess core.Session, batch Batch) (SaveResult, error) {
	var res SaveResult
	if sess.IsAnonymous() {
		return res, ErrUnauthorized
	}

	records, err := svc.refresh(ctx, batch)
	if err != nil {
		return res, err
	}

	if !sess.Elevated {
		var rolls []string
		for _, r := range records {
			if importer.RequiresElevatedPrivilege(r) {
				rolls = append(rolls, r.RollNumber)
			}
		}
		if len(rolls) > 0 {
			return res, &PrivilegeError{RollNumbers: rolls}
		}
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		now := time.Now().UTC()
		switch r.Action() {
		case importer.ActionCreate:
			_, err := svc.repo.CreateRecord(ctx, Record{
				StudentID:  r.RosterID,
				Subject:    batch.Subject,
				Field:      batch.Field,
				Value:      r.Value,
				RecordedBy: sess.UserID,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			if err != nil {
				svc.logPartialSave(batch, res, err)
				return res, errors.Wrapf(err, "creating record of %s", r.RollNumber)
			}
			res.Created++
		case importer.ActionUpdate:
			_, err := svc.repo.UpdateRecord(ctx, Record{
				ID:         r.ExistingID,
				StudentID:  r.RosterID,
				Subject:    batch.Subject,
				Field:      batch.Field,
				Value:      r.Value,
				RecordedBy: sess.UserID,
				UpdatedAt:  now,
			})
			if err != nil {
				svc.logPartialSave(batch, res, err)
				return res, errors.Wrapf(err, "updating record of %s", r.RollNumber)
			}
			res.Updated++
		default:
			res.Unchanged++
		}
	}

	if res.Updated > 0 {
		svc.logger.Info(
			"records updated",
			map[string]interface{}{"subject": batch.Subject, "field": batch.Field, "count": res.Updated},
			sess,
		)
	}
	return res, nil
}

// refresh returns a copy of the batch records carrying the records currently stored for them.
// Unmatched records take the stored value.
func (svc *service) refresh(ctx context.Context, batch Batch) ([]importer.ReconciledRecord, error) {
	ids := make([]string, 0, len(batch.Records))
	for _, r := range batch.Records {
		ids = append(ids, r.RosterID)
	}
	existing, err := svc.Existing(ctx, QueryFilter{Subject: batch.Subject, Field: batch.Field, StudentIDs: ids})
	if err != nil {
		return nil, err
	}

	records := make([]importer.ReconciledRecord, len(batch.Records))
	for i, r := range batch.Records {
		prev, ok := existing[r.RosterID]
		r.ExistingID, r.PreviousValue = prev.RecordID, prev.Value
		if !r.Matched {
			r.Value = r.Mode.DefaultValue()
			if ok {
				r.Value = prev.Value
			}
		}
		records[i] = r
	}
	return records, nil
}

func (svc *service) logPartialSave(batch Batch, res SaveResult, err error) {
	svc.logger.Error(
		"batch partially saved",
		errors.WithStack(err),
		map[string]interface{}{
			"subject": batch.Subject, "field": batch.Field,
			"created": res.Created, "updated": res.Updated,
		},
	)
}
