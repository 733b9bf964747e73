package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"studynotes/internal/coursecode"
	"studynotes/internal/domain/content"
	"studynotes/internal/domain/course"
	"studynotes/internal/events"
	"studynotes/internal/repository"
	"studynotes/internal/storage"
	notes_errors "studynotes/pkg/errors"
	"studynotes/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxAttachmentBytes is the attachment size ceiling (15 MiB).
const MaxAttachmentBytes = 15 << 20

// allowedContentTypes maps each accepted media type to its fallback file
// extension.
var allowedContentTypes = map[string]string{
	"application/pdf": "pdf",
	"image/png":       "png",
	"image/jpeg":      "jpg",
	"image/webp":      "webp",
}

const (
	msgCourseRequired = "Course code is required."
	msgTitleRequired  = "Title is required."
	msgBodyRequired   = "Body is required."
	msgFileRequired   = "Attach a PDF or image."
	msgOneFile        = "Attach exactly one file."
	msgFileType       = "Only PDF or images (png/jpg/webp) are allowed."
	msgFileTooLarge   = "File too large (max 15MB)."
)

type SubmitState string

const (
	StateInit           SubmitState = "init"
	StateValidated      SubmitState = "validated"
	StateCourseResolved SubmitState = "course_resolved"
	StateBlobWritten    SubmitState = "blob_written"
	StateCommitted      SubmitState = "committed"
	StateFailed         SubmitState = "failed"
	StateRolledBack     SubmitState = "rolled_back"
	// StateIndeterminate means the row insert failed and its outcome could
	// not be read back; the blob is kept for the orphan sweep.
	StateIndeterminate SubmitState = "indeterminate"
)

// Attachment is the single file carried by a submission.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type SubmitInput struct {
	CourseCode string       `validate:"required"`
	Title      string       `validate:"required"`
	Body       string       `validate:"required"`
	Files      []Attachment `validate:"len=1"`
}

// TextInput is a post without an attachment. Body is optional.
type TextInput struct {
	CourseCode string `validate:"required"`
	Title      string `validate:"required"`
	Body       string
}

// Compensation records the cleanup attempted after a failed metadata write.
// Err is nil when the blob was removed.
type Compensation struct {
	Path      string
	Attempted bool
	Err       error
}

// SubmitResult reports how far a submission got. On success State is
// StateCommitted; otherwise the returned error carries the primary failure
// and Compensation, when set, carries the cleanup outcome separately.
type SubmitResult struct {
	ItemID       uuid.UUID
	BlobPath     string
	CourseID     uuid.UUID
	State        SubmitState
	Compensation *Compensation
}

// CourseFinder resolves a canonical code to exactly one course.
type CourseFinder interface {
	Exact(ctx context.Context, code string) (course.Course, error)
}

type UploadCoordinatorConfig struct {
	CompensationTimeout time.Duration
}

// UploadCoordinator writes a content item across the blob store and the
// metadata store. The blob is written first; a failed row insert deletes it
// again.
type UploadCoordinator struct {
	courses   CourseFinder
	items     repository.ContentRepository
	blobs     storage.BlobStore
	publisher events.Publisher
	log       *logger.Logger
	validate  *validator.Validate
	tracer    trace.Tracer
	cfg       UploadCoordinatorConfig

	now   func() time.Time
	newID func() uuid.UUID
}

func NewUploadCoordinator(
	courses CourseFinder,
	items repository.ContentRepository,
	blobs storage.BlobStore,
	publisher events.Publisher,
	log *logger.Logger,
	cfg UploadCoordinatorConfig,
) *UploadCoordinator {
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = 10 * time.Second
	}
	return &UploadCoordinator{
		courses:   courses,
		items:     items,
		blobs:     blobs,
		publisher: publisher,
		log:       log,
		validate:  validator.New(),
		tracer:    otel.Tracer("studynotes/upload"),
		cfg:       cfg,
		now:       time.Now,
		newID:     uuid.New,
	}
}

func (c *UploadCoordinator) Submit(ctx context.Context, ownerID uuid.UUID, in SubmitInput) (SubmitResult, error) {
	ctx, span := c.tracer.Start(ctx, "upload.submit")
	defer span.End()
	log := c.log.WithContext(ctx)

	res := SubmitResult{State: StateInit}
	fail := func(err error) (SubmitResult, error) {
		res.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, string(res.State))
		log.Warn("upload failed", "item_id", res.ItemID, "blob_path", res.BlobPath, "state", res.State, "error", err)
		return res, err
	}

	if ownerID == uuid.Nil {
		return fail(notes_errors.New(notes_errors.ErrUnauthorized, "Sign in to upload."))
	}
	att, ext, err := c.validateInput(&in)
	if err != nil {
		return fail(err)
	}
	res.State = StateValidated

	crs, err := c.courses.Exact(ctx, in.CourseCode)
	if err != nil {
		return fail(err)
	}
	res.CourseID = crs.ID
	res.State = StateCourseResolved

	res.ItemID = c.newID()
	res.BlobPath = BlobPath(ownerID, res.ItemID, ext)
	span.SetAttributes(
		attribute.String("item.id", res.ItemID.String()),
		attribute.String("blob.path", res.BlobPath),
	)

	if err := c.blobs.Put(ctx, res.BlobPath, att.Body, att.Size, att.ContentType); err != nil {
		return fail(notes_errors.Wrap(notes_errors.ErrStorage, "Upload failed. Please try again.", err))
	}
	res.State = StateBlobWritten
	span.AddEvent("blob written")

	item := content.Item{
		ID:        res.ItemID,
		OwnerID:   ownerID,
		CourseID:  crs.ID,
		Title:     in.Title,
		Body:      optionalString(in.Body),
		BlobPath:  optionalString(res.BlobPath),
		CreatedAt: c.now().UTC(),
	}
	err = ctx.Err()
	if err == nil {
		if err = c.items.Create(ctx, &item); err != nil {
			stored, lookupErr := c.rowStored(ctx, item)
			switch {
			case stored:
				log.Warn("row insert reported failure but the row is stored", "item_id", res.ItemID, "error", err)
				err = nil
			case lookupErr != nil:
				res.State = StateIndeterminate
				res.Compensation = &Compensation{
					Path: res.BlobPath,
					Err:  notes_errors.Wrap(notes_errors.ErrCompensation, fmt.Sprintf("blob %s kept, row state unknown", res.BlobPath), lookupErr),
				}
				perr := notes_errors.Wrap(notes_errors.ErrPersistence, "Could not save your post. Please try again.", err)
				span.RecordError(perr)
				span.SetStatus(codes.Error, string(res.State))
				log.Error("upload outcome unknown", "item_id", res.ItemID, "blob_path", res.BlobPath, "state", res.State,
					"error", err, "lookup_error", lookupErr)
				return res, perr
			}
		}
	}
	if err != nil {
		res.Compensation = c.compensate(ctx, res.BlobPath)
		res.State = StateRolledBack
		perr := notes_errors.Wrap(notes_errors.ErrPersistence, "Could not save your post. Please try again.", err)
		span.RecordError(perr)
		span.SetStatus(codes.Error, string(res.State))
		log.Error("upload rolled back", "item_id", res.ItemID, "blob_path", res.BlobPath, "state", res.State,
			"error", err, "compensated", res.Compensation.Err == nil)
		return res, perr
	}
	res.State = StateCommitted
	log.Info("upload committed", "item_id", res.ItemID, "blob_path", res.BlobPath, "state", res.State)

	c.publish(ctx, events.ChangeEvent{
		Collection: events.CollectionContentItems,
		Op:         events.OpCreated,
		RecordID:   item.ID,
		ActorID:    ownerID,
		CourseID:   uuid.NullUUID{UUID: crs.ID, Valid: true},
		OccurredAt: item.CreatedAt,
	})
	return res, nil
}

// SubmitText stores a post that carries no attachment. There is no blob, so
// a failed insert needs no compensation.
func (c *UploadCoordinator) SubmitText(ctx context.Context, ownerID uuid.UUID, in TextInput) (SubmitResult, error) {
	ctx, span := c.tracer.Start(ctx, "upload.submit_text")
	defer span.End()
	log := c.log.WithContext(ctx)

	res := SubmitResult{State: StateInit}
	fail := func(err error) (SubmitResult, error) {
		res.State = StateFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, string(res.State))
		log.Warn("text post failed", "item_id", res.ItemID, "error", err)
		return res, err
	}

	if ownerID == uuid.Nil {
		return fail(notes_errors.New(notes_errors.ErrUnauthorized, "Sign in to post."))
	}
	in.CourseCode = coursecode.Normalize(in.CourseCode)
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)
	if err := c.validate.Struct(&in); err != nil {
		return fail(validationError(err, 0))
	}
	res.State = StateValidated

	crs, err := c.courses.Exact(ctx, in.CourseCode)
	if err != nil {
		return fail(err)
	}
	res.CourseID = crs.ID
	res.State = StateCourseResolved

	res.ItemID = c.newID()
	item := content.Item{
		ID:        res.ItemID,
		OwnerID:   ownerID,
		CourseID:  crs.ID,
		Title:     in.Title,
		Body:      optionalString(in.Body),
		CreatedAt: c.now().UTC(),
	}
	if err := c.items.Create(ctx, &item); err != nil {
		return fail(notes_errors.Wrap(notes_errors.ErrPersistence, "Could not save your post. Please try again.", err))
	}
	res.State = StateCommitted
	log.Info("text post committed", "item_id", res.ItemID)

	c.publish(ctx, events.ChangeEvent{
		Collection: events.CollectionContentItems,
		Op:         events.OpCreated,
		RecordID:   item.ID,
		ActorID:    ownerID,
		CourseID:   uuid.NullUUID{UUID: crs.ID, Valid: true},
		OccurredAt: item.CreatedAt,
	})
	return res, nil
}

// rowStored reads back an item whose insert returned an error. A deadline
// that fires after the commit reports failure for a row that exists.
func (c *UploadCoordinator) rowStored(ctx context.Context, item content.Item) (bool, error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CompensationTimeout)
	defer cancel()

	stored, err := c.items.GetByID(cctx, item.ID)
	if errors.Is(err, notes_errors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored.OwnerID == item.OwnerID && stored.BlobPath == item.BlobPath, nil
}

// compensate deletes the blob written for a submission whose row was not
// stored. It runs on a context detached from the caller's cancellation so
// that a cancelled request still cleans up, bounded by its own timeout.
func (c *UploadCoordinator) compensate(ctx context.Context, path string) *Compensation {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CompensationTimeout)
	defer cancel()

	comp := &Compensation{Path: path, Attempted: true}
	if err := c.blobs.Delete(cctx, path); err != nil {
		comp.Err = notes_errors.Wrap(notes_errors.ErrCompensation, fmt.Sprintf("blob %s left orphaned", path), err)
		c.log.WithContext(ctx).Error("compensating delete failed", "blob_path", path, "error", err)
	}
	return comp
}

func (c *UploadCoordinator) publish(ctx context.Context, event events.ChangeEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.log.WithContext(ctx).Warn("change event publish failed", "collection", event.Collection, "record_id", event.RecordID, "error", err)
	}
}

// validateInput normalizes in and checks it, returning the attachment and
// the file extension to store it under.
func (c *UploadCoordinator) validateInput(in *SubmitInput) (Attachment, string, error) {
	in.CourseCode = coursecode.Normalize(in.CourseCode)
	in.Title = strings.TrimSpace(in.Title)
	in.Body = strings.TrimSpace(in.Body)

	if err := c.validate.Struct(in); err != nil {
		return Attachment{}, "", validationError(err, len(in.Files))
	}

	att := in.Files[0]
	if att.Body == nil || att.Size <= 0 {
		return Attachment{}, "", notes_errors.New(notes_errors.ErrValidation, msgFileRequired)
	}
	contentType, ok := allowedType(att.ContentType)
	if !ok {
		return Attachment{}, "", notes_errors.New(notes_errors.ErrValidation, msgFileType)
	}
	if att.Size > MaxAttachmentBytes {
		return Attachment{}, "", notes_errors.New(notes_errors.ErrValidation, msgFileTooLarge)
	}
	att.ContentType = contentType
	return att, fileExtension(att.Filename, contentType), nil
}

// ValidateAttachment applies the upload type and size rules to a lone file.
func ValidateAttachment(contentType string, size int64) (string, error) {
	if size <= 0 {
		return "", notes_errors.New(notes_errors.ErrValidation, msgFileRequired)
	}
	ct, ok := allowedType(contentType)
	if !ok {
		return "", notes_errors.New(notes_errors.ErrValidation, msgFileType)
	}
	if size > MaxAttachmentBytes {
		return "", notes_errors.New(notes_errors.ErrValidation, msgFileTooLarge)
	}
	return ct, nil
}

func validationError(err error, files int) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return notes_errors.Wrap(notes_errors.ErrValidation, "Invalid submission.", err)
	}
	msg := "Invalid submission."
	switch verrs[0].Field() {
	case "CourseCode":
		msg = msgCourseRequired
	case "Title":
		msg = msgTitleRequired
	case "Body":
		msg = msgBodyRequired
	case "Files":
		msg = msgFileRequired
		if files > 1 {
			msg = msgOneFile
		}
	}
	return notes_errors.New(notes_errors.ErrValidation, msg)
}

func allowedType(raw string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", false
	}
	mediaType = strings.ToLower(mediaType)
	_, ok := allowedContentTypes[mediaType]
	return mediaType, ok
}

// fileExtension keeps the uploaded file's own extension when it is a plain
// alphanumeric token, otherwise falls back to the content type's.
func fileExtension(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext != "" && len(ext) <= 8 && strings.IndexFunc(ext, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) < 0 {
		return ext
	}
	return allowedContentTypes[contentType]
}

// BlobPath is the object key for an item: owner/id.ext.
func BlobPath(ownerID, itemID uuid.UUID, ext string) string {
	return ownerID.String() + "/" + itemID.String() + "." + ext
}
