package service

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"orgstructure/internal/blob"
	"orgstructure/internal/models"
	"orgstructure/internal/storage"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/platform/changes"
	"orgstructure/pkg/platform/validation"
)

// Upload is one file part of a with-files request.
type Upload struct {
	Filename string
	Body     io.Reader
}

// Document is an upload labelled with its document type.
type Document struct {
	Type string
	Upload
}

// Files are the blob changes of a with-files request. DeletePhoto is
// ignored when Photo is set.
type Files struct {
	Photo       *Upload
	Documents   []Document
	DeletePhoto bool
}

// Content is an opened blob ready to stream.
type Content struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
}

var docTypePattern = regexp.MustCompile(`^[\p{L}\p{N}_\- ]{1,64}$`)

func (f Files) validate() error {
	var fields []validation.FieldError
	seen := make(map[string]bool, len(f.Documents))
	for _, d := range f.Documents {
		switch {
		case !docTypePattern.MatchString(d.Type):
			fields = append(fields, validation.FieldError{Field: "document_types", Message: fmt.Sprintf("invalid document type %q", d.Type)})
		case seen[d.Type]:
			fields = append(fields, validation.FieldError{Field: "document_types", Message: fmt.Sprintf("duplicate document type %q", d.Type)})
		}
		seen[d.Type] = true
	}
	if len(fields) > 0 {
		return dErrors.New(dErrors.CodeValidation, "invalid documents").WithDetails(fields)
	}
	return nil
}

// staged is an upload read ahead of the transaction, so a retried attempt
// writes the same bytes again.
type staged struct {
	docType string
	ext     string
	data    []byte
}

type stagedFiles struct {
	photo       *staged
	documents   []staged
	deletePhoto bool
}

// stage validates and reads every upload. Photos are accepted by content
// rather than filename.
func (f Files) stage() (stagedFiles, error) {
	if err := f.validate(); err != nil {
		return stagedFiles{}, err
	}
	out := stagedFiles{deletePhoto: f.DeletePhoto}
	if f.Photo != nil {
		data, err := io.ReadAll(f.Photo.Body)
		if err != nil {
			return stagedFiles{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read photo")
		}
		mt := mimetype.Detect(data)
		if !isImage(mt) {
			return stagedFiles{}, dErrors.New(dErrors.CodeValidation, "photo must be an image").WithDetails([]validation.FieldError{
				{Field: "photo", Message: "unsupported content type " + mt.String()},
			})
		}
		ext := mt.Extension()
		if ext == "" {
			ext = filepath.Ext(f.Photo.Filename)
		}
		out.photo = &staged{ext: ext, data: data}
	}
	for _, d := range f.Documents {
		data, err := io.ReadAll(d.Body)
		if err != nil {
			return stagedFiles{}, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("failed to read %q document", d.Type))
		}
		out.documents = append(out.documents, staged{
			docType: d.Type,
			ext:     strings.ToLower(filepath.Ext(d.Filename)),
			data:    data,
		})
	}
	return out, nil
}

// CreateWithFiles inserts the row and stores its blobs in one unit.
func (s *Service) CreateWithFiles(ctx context.Context, in models.StaffCreate, files Files) (*models.Staff, error) {
	up, err := files.stage()
	if err != nil {
		return nil, err
	}
	var (
		out     *models.Staff
		written []string
	)
	_, err = s.runner.Mutate(ctx, s.staff.Entity(), changes.ActionCreate, func(ctx context.Context, tx storage.Gateway) (int64, error) {
		written = s.restart(ctx, written)
		rec := in.Build()
		id, err := s.staff.CreateTx(ctx, tx, rec)
		if err != nil {
			return 0, err
		}
		if _, err := s.attach(ctx, rec, up, &written); err != nil {
			return 0, err
		}
		if err := tx.Staff().Update(ctx, rec); err != nil {
			return 0, err
		}
		out = rec
		return id, nil
	})
	if err != nil {
		s.discard(ctx, written)
		return nil, err
	}
	return out, nil
}

// UpdateWithFiles applies the field update and blob changes in one unit.
// Blobs replaced by the update are deleted once it commits.
func (s *Service) UpdateWithFiles(ctx context.Context, id int64, in models.StaffUpdate, files Files) (*models.Staff, error) {
	up, err := files.stage()
	if err != nil {
		return nil, err
	}
	var (
		out      *models.Staff
		written  []string
		replaced []string
	)
	_, err = s.runner.Mutate(ctx, s.staff.Entity(), changes.ActionUpdate, func(ctx context.Context, tx storage.Gateway) (int64, error) {
		written = s.restart(ctx, written)
		rec, err := s.staff.UpdateTx(ctx, tx, id, func(st *models.Staff) { in.Apply(st) })
		if err != nil {
			return 0, err
		}
		replaced, err = s.attach(ctx, rec, up, &written)
		if err != nil {
			return 0, err
		}
		if err := tx.Staff().Update(ctx, rec); err != nil {
			return 0, err
		}
		out = rec
		return id, nil
	})
	if err != nil {
		s.discard(ctx, written)
		return nil, err
	}
	s.discard(ctx, replaced)
	return out, nil
}

// restart drops the blobs of a rolled back attempt before the next one runs.
func (s *Service) restart(ctx context.Context, written []string) []string {
	if len(written) > 0 {
		s.discard(ctx, written)
	}
	return nil
}

// attach stores the uploads and points rec at them. Every key written is
// appended to written before any error is returned; the keys rec no longer
// references are returned.
func (s *Service) attach(ctx context.Context, rec *models.Staff, up stagedFiles, written *[]string) ([]string, error) {
	var replaced []string
	switch {
	case up.photo != nil:
		key := blob.StaffKey(rec.ID, "photo", up.photo.ext)
		if err := s.save(ctx, key, up.photo.data, written); err != nil {
			return nil, err
		}
		if rec.PhotoPath != nil && *rec.PhotoPath != "" {
			replaced = append(replaced, *rec.PhotoPath)
		}
		rec.PhotoPath = &key
	case up.deletePhoto && rec.PhotoPath != nil:
		replaced = append(replaced, *rec.PhotoPath)
		rec.PhotoPath = nil
	}

	if len(up.documents) > 0 {
		docs := rec.DocumentPaths.Clone()
		if docs == nil {
			docs = make(models.DocumentPaths, len(up.documents))
		}
		for _, d := range up.documents {
			key := blob.StaffKey(rec.ID, "doc_"+docLabel(d.docType), d.ext)
			if err := s.save(ctx, key, d.data, written); err != nil {
				return nil, err
			}
			if old := docs[d.docType]; old != "" {
				replaced = append(replaced, old)
			}
			docs[d.docType] = key
		}
		rec.DocumentPaths = docs
	}
	return replaced, nil
}

func (s *Service) save(ctx context.Context, key string, data []byte, written *[]string) error {
	// Recorded first: a failed save may still leave a partial object.
	*written = append(*written, key)
	if err := s.blobs.Save(ctx, key, bytes.NewReader(data)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store file")
	}
	return nil
}

func isImage(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
	}
	return false
}

var unsafeLabel = regexp.MustCompile(`[^a-z0-9_-]+`)

// docLabel makes a document type safe for use inside a blob key.
func docLabel(docType string) string {
	label := unsafeLabel.ReplaceAllString(strings.ToLower(docType), "_")
	label = strings.Trim(label, "_")
	if label == "" {
		return "file"
	}
	return label
}

// Photo opens the staff member's photo.
func (s *Service) Photo(ctx context.Context, staffID int64) (*Content, error) {
	st, err := s.staff.Get(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if st.PhotoPath == nil || *st.PhotoPath == "" {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "staff %d has no photo", staffID)
	}
	return s.open(ctx, *st.PhotoPath)
}

// Document opens the document stored under docType.
func (s *Service) Document(ctx context.Context, staffID int64, docType string) (*Content, error) {
	st, err := s.staff.Get(ctx, staffID)
	if err != nil {
		return nil, err
	}
	key := st.DocumentPaths[docType]
	if key == "" {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "staff %d has no %q document", staffID, docType)
	}
	return s.open(ctx, key)
}

// open sniffs the content type from the first bytes and hands back a
// reader that still yields them.
func (s *Service) open(ctx context.Context, key string) (*Content, error) {
	rc, err := s.blobs.Open(ctx, key)
	if err != nil {
		return nil, storage.DomainError(err, "file")
	}
	br := bufio.NewReaderSize(rc, 3072)
	head, _ := br.Peek(3072)
	return &Content{
		Body:        readCloser{Reader: br, Closer: rc},
		ContentType: mimetype.Detect(head).String(),
		Filename:    filepath.Base(key),
	}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}
