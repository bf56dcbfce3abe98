package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"orgstructure/internal/blob"
	"orgstructure/internal/blob/fs"
	"orgstructure/internal/blob/mocks"
	"orgstructure/internal/crud"
	"orgstructure/internal/models"
	"orgstructure/internal/staff/service"
	"orgstructure/internal/storage"
	"orgstructure/internal/storage/memory"
	"orgstructure/internal/storage/storagetest"
	dErrors "orgstructure/pkg/domain-errors"
	"orgstructure/pkg/requestcontext"
)

// pngHeader is enough of a PNG for content sniffing.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func photo() *service.Upload {
	return &service.Upload{Filename: "me.png", Body: bytes.NewReader(pngHeader)}
}

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

type StaffSuite struct {
	suite.Suite
	db    *memory.DB
	blobs *fs.Store
	svc   *service.Service
	ctx   context.Context
}

func TestStaffSuite(t *testing.T) {
	suite.Run(t, new(StaffSuite))
}

func (s *StaffSuite) SetupTest() {
	s.db = memory.New()
	var err error
	s.blobs, err = fs.New(s.T().TempDir())
	s.Require().NoError(err)
	s.svc = service.New(crud.NewRunner(s.db, crud.WithLogger(logger())), s.blobs)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC))
}

func (s *StaffSuite) org(code string, t models.OrgType, parent *int64) int64 {
	o := &models.Organization{Name: code, Code: code, OrgType: t, ParentID: parent, IsActive: true}
	s.Require().NoError(s.db.Organizations().Create(s.ctx, o))
	return o.ID
}

func (s *StaffSuite) exists(key string) bool {
	rc, err := s.blobs.Open(s.ctx, key)
	if err != nil {
		return false
	}
	_ = rc.Close()
	return true
}

func newStaff(email string) models.StaffCreate {
	return models.StaffCreate{Email: email, FirstName: "Ann", LastName: "Lee"}
}

func (s *StaffSuite) TestLocationTyping() {
	holding := s.org("H", models.OrgTypeHolding, nil)
	le := s.org("LE", models.OrgTypeLegalEntity, &holding)
	loc := s.org("LOC", models.OrgTypeLocation, &le)

	st, err := s.svc.CreateStaff(s.ctx, newStaff("a@example.com"))
	s.Require().NoError(err)

	_, err = s.svc.UpdateStaff(s.ctx, st.ID, models.StaffUpdate{LocationID: models.Some(&le)})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	updated, err := s.svc.UpdateStaff(s.ctx, st.ID, models.StaffUpdate{LocationID: models.Some(&loc)})
	s.Require().NoError(err)
	s.Equal(loc, *updated.LocationID)

	got, err := s.svc.GetStaff(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(loc, *got.LocationID)
}

func (s *StaffSuite) TestEmailIsUnique() {
	_, err := s.svc.CreateStaff(s.ctx, newStaff("a@example.com"))
	s.Require().NoError(err)
	_, err = s.svc.CreateStaff(s.ctx, newStaff("a@example.com"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *StaffSuite) TestCreateWithFiles() {
	st, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{
		Photo: photo(),
		Documents: []service.Document{
			{Type: "passport", Upload: service.Upload{Filename: "p.PDF", Body: strings.NewReader("%PDF-1.4")}},
		},
	})
	s.Require().NoError(err)
	s.Require().NotNil(st.PhotoPath)
	s.Regexp(`^staff/1/photo_[0-9a-f]{32}\.png$`, *st.PhotoPath)
	s.Regexp(`^staff/1/doc_passport_[0-9a-f]{32}\.pdf$`, st.DocumentPaths["passport"])
	s.True(s.exists(*st.PhotoPath))

	content, err := s.svc.Photo(s.ctx, st.ID)
	s.Require().NoError(err)
	defer content.Body.Close()
	body, err := io.ReadAll(content.Body)
	s.Require().NoError(err)
	s.Equal(pngHeader, body)
	s.Equal("image/png", content.ContentType)

	doc, err := s.svc.Document(s.ctx, st.ID, "passport")
	s.Require().NoError(err)
	_ = doc.Body.Close()

	_, err = s.svc.Document(s.ctx, st.ID, "visa")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *StaffSuite) TestPlainCreateCannotClaimAnotherStaffFiles() {
	owner, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{
		Documents: []service.Document{{Type: "passport", Upload: service.Upload{Filename: "p.pdf", Body: strings.NewReader("%PDF-1.4")}}},
	})
	s.Require().NoError(err)
	key := owner.DocumentPaths["passport"]

	var in models.StaffCreate
	s.Require().NoError(json.Unmarshal([]byte(`{
		"email": "b@example.com", "first_name": "Bo", "last_name": "Ng",
		"document_paths": {"x": "`+key+`"}, "photo_path": "`+key+`"
	}`), &in))
	intruder, err := s.svc.CreateStaff(s.ctx, in)
	s.Require().NoError(err)
	s.Empty(intruder.DocumentPaths)
	s.Nil(intruder.PhotoPath)

	s.Require().NoError(s.svc.DeleteStaff(s.ctx, intruder.ID))
	s.True(s.exists(key))
	doc, err := s.svc.Document(s.ctx, owner.ID, "passport")
	s.Require().NoError(err)
	_ = doc.Body.Close()
}

func (s *StaffSuite) TestEmailIsNormalized() {
	st, err := s.svc.CreateStaff(s.ctx, newStaff("  Ann.Lee@Example.COM "))
	s.Require().NoError(err)
	s.Equal("ann.lee@example.com", st.Email)

	_, err = s.svc.CreateStaff(s.ctx, newStaff("ANN.LEE@example.com"))
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	other, err := s.svc.CreateStaff(s.ctx, newStaff("bo@example.com"))
	s.Require().NoError(err)
	_, err = s.svc.UpdateStaff(s.ctx, other.ID, models.StaffUpdate{Email: models.Some("Ann.Lee@example.com")})
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	updated, err := s.svc.UpdateStaff(s.ctx, other.ID, models.StaffUpdate{Email: models.Some(" Bo.Ng@Example.com")})
	s.Require().NoError(err)
	s.Equal("bo.ng@example.com", updated.Email)
}

func (s *StaffSuite) TestRetriedCreateWritesEveryUploadOnce() {
	store := storagetest.NewRetryingStore(s.db, 1)
	svc := service.New(crud.NewRunner(store, crud.WithLogger(logger())), s.blobs)

	st, err := svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{
		Photo:     photo(),
		Documents: []service.Document{{Type: "passport", Upload: service.Upload{Filename: "p.pdf", Body: strings.NewReader("%PDF-1.4")}}},
	})
	s.Require().NoError(err)
	s.Equal(2, store.Attempts())

	content, err := s.svc.Photo(s.ctx, st.ID)
	s.Require().NoError(err)
	body, err := io.ReadAll(content.Body)
	_ = content.Body.Close()
	s.Require().NoError(err)
	s.Equal(pngHeader, body)

	doc, err := s.svc.Document(s.ctx, st.ID, "passport")
	s.Require().NoError(err)
	body, err = io.ReadAll(doc.Body)
	_ = doc.Body.Close()
	s.Require().NoError(err)
	s.Equal("%PDF-1.4", string(body))

	objs, err := s.blobs.List(s.ctx, blob.StaffPrefix)
	s.Require().NoError(err)
	s.Len(objs, 2, "blobs of the rolled back attempt are removed")
}

func (s *StaffSuite) TestRetriedUpdateReplacesPhotoOnce() {
	st, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{Photo: photo()})
	s.Require().NoError(err)
	old := *st.PhotoPath

	store := storagetest.NewRetryingStore(s.db, 1)
	svc := service.New(crud.NewRunner(store, crud.WithLogger(logger())), s.blobs)
	updated, err := svc.UpdateWithFiles(s.ctx, st.ID, models.StaffUpdate{FirstName: models.Some("Bo")}, service.Files{Photo: photo()})
	s.Require().NoError(err)
	s.Equal(2, store.Attempts())
	s.Equal("Bo", updated.FirstName)
	s.False(s.exists(old))

	objs, err := s.blobs.List(s.ctx, blob.StaffPrefix)
	s.Require().NoError(err)
	s.Require().Len(objs, 1)
	s.True(s.exists(*updated.PhotoPath))
}

func (s *StaffSuite) TestNonImagePhotoIsRejected() {
	_, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{
		Photo: &service.Upload{Filename: "me.png", Body: strings.NewReader("#!/bin/sh\necho hi\n")},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, total, err := s.svc.ListStaff(s.ctx, storage.Query{})
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *StaffSuite) TestDocumentTypesAreValidated() {
	doc := func(t string) service.Document {
		return service.Document{Type: t, Upload: service.Upload{Filename: "a.pdf", Body: strings.NewReader("x")}}
	}
	_, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{Documents: []service.Document{doc("a"), doc("a")}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{Documents: []service.Document{doc("../x")}})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *StaffSuite) TestReplacingPhotoDeletesOldBlob() {
	st, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{Photo: photo()})
	s.Require().NoError(err)
	old := *st.PhotoPath

	updated, err := s.svc.UpdateWithFiles(s.ctx, st.ID, models.StaffUpdate{FirstName: models.Some("Bo")}, service.Files{Photo: photo()})
	s.Require().NoError(err)
	s.Equal("Bo", updated.FirstName)
	s.NotEqual(old, *updated.PhotoPath)
	s.False(s.exists(old))
	s.True(s.exists(*updated.PhotoPath))
}

func (s *StaffSuite) TestDeletePhoto() {
	st, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{Photo: photo()})
	s.Require().NoError(err)
	key := *st.PhotoPath

	updated, err := s.svc.UpdateWithFiles(s.ctx, st.ID, models.StaffUpdate{}, service.Files{DeletePhoto: true})
	s.Require().NoError(err)
	s.Nil(updated.PhotoPath)
	s.False(s.exists(key))

	_, err = s.svc.Photo(s.ctx, st.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *StaffSuite) TestFailedUpdateKeepsOldBlobs() {
	st, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{Photo: photo()})
	s.Require().NoError(err)
	old := *st.PhotoPath

	_, err = s.svc.UpdateWithFiles(s.ctx, st.ID, models.StaffUpdate{Email: models.Some("not-an-email")}, service.Files{Photo: photo()})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.True(s.exists(old))

	objs, err := s.blobs.List(s.ctx, blob.StaffPrefix)
	s.Require().NoError(err)
	s.Len(objs, 1)
}

func (s *StaffSuite) TestDeleteCascadesAndRemovesBlobs() {
	a, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{Photo: photo()})
	s.Require().NoError(err)
	b, err := s.svc.CreateStaff(s.ctx, newStaff("b@example.com"))
	s.Require().NoError(err)

	p := &models.Position{Name: "P", Attribute: models.AttributeSpecialist, IsActive: true}
	s.Require().NoError(s.db.Positions().Create(s.ctx, p))
	period := models.Period{IsActive: true, StartDate: models.NewDate(2024, 1, 1)}
	s.Require().NoError(s.db.StaffPositions().Create(s.ctx, &models.StaffPosition{StaffID: a.ID, PositionID: p.ID, Period: period}))
	s.Require().NoError(s.db.FunctionalRelations().Create(s.ctx, &models.FunctionalRelation{
		ManagerID: b.ID, SubordinateID: a.ID, RelationType: models.RelationFunctional, Period: period,
	}))

	s.Require().NoError(s.svc.DeleteStaff(s.ctx, a.ID))
	s.False(s.exists(*a.PhotoPath))

	n, err := s.db.StaffPositions().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
	n, err = s.db.FunctionalRelations().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)

	err = s.svc.DeleteStaff(s.ctx, a.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *StaffSuite) TestReferencedBlobs() {
	st, err := s.svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{
		Photo:     photo(),
		Documents: []service.Document{{Type: "passport", Upload: service.Upload{Filename: "p.pdf", Body: strings.NewReader("x")}}},
	})
	s.Require().NoError(err)

	refs, err := s.svc.ReferencedBlobs(s.ctx)
	s.Require().NoError(err)
	s.True(refs[*st.PhotoPath])
	s.True(refs[st.DocumentPaths["passport"]])
	s.Len(refs, 2)
}

// RollbackSuite drives the blob store through a mock to assert cleanup.
type RollbackSuite struct {
	suite.Suite
	ctrl  *gomock.Controller
	blobs *mocks.MockStore
	db    *memory.DB
	ctx   context.Context
}

func TestRollbackSuite(t *testing.T) {
	suite.Run(t, new(RollbackSuite))
}

func (s *RollbackSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.blobs = mocks.NewMockStore(s.ctrl)
	s.db = memory.New()
	s.ctx = context.Background()
}

func (s *RollbackSuite) TestBlobFailureRollsBackRow() {
	svc := service.New(crud.NewRunner(s.db, crud.WithLogger(logger())), s.blobs)

	var saved []string
	gomock.InOrder(
		s.blobs.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, key string, _ io.Reader) error {
				saved = append(saved, key)
				return nil
			}),
		s.blobs.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, key string, _ io.Reader) error {
				saved = append(saved, key)
				return errors.New("bucket unreachable")
			}),
	)
	s.blobs.EXPECT().Delete(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string) error {
			s.Contains(saved, key)
			return nil
		}).Times(2)

	_, err := svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{
		Photo:     photo(),
		Documents: []service.Document{{Type: "passport", Upload: service.Upload{Filename: "p.pdf", Body: strings.NewReader("x")}}},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	n, err := s.db.Staff().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RollbackSuite) TestDatabaseFailureDeletesWrittenBlobs() {
	svc := service.New(crud.NewRunner(failingStaffWrites{s.db}, crud.WithLogger(logger())), s.blobs)

	var saved string
	s.blobs.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string, _ io.Reader) error {
			saved = key
			return nil
		})
	s.blobs.EXPECT().Delete(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string) error {
			s.Equal(saved, key)
			return nil
		})

	_, err := svc.CreateWithFiles(s.ctx, newStaff("a@example.com"), service.Files{Photo: photo()})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	n, err := s.db.Staff().Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *RollbackSuite) TestDeleteStaffSurvivesBlobCleanupFailure() {
	svc := service.New(crud.NewRunner(s.db, crud.WithLogger(logger())), s.blobs)
	key := "staff/1/photo_x.png"
	s.Require().NoError(s.db.Staff().Create(s.ctx, &models.Staff{Email: "a@example.com", FirstName: "A", LastName: "B", PhotoPath: &key, IsActive: true}))

	s.blobs.EXPECT().Delete(gomock.Any(), key).Return(errors.New("denied"))
	s.NoError(svc.DeleteStaff(s.ctx, 1))
}

// failingStaffWrites fails every staff update made inside a transaction.
type failingStaffWrites struct {
	*memory.DB
}

func (f failingStaffWrites) RunInTx(ctx context.Context, fn func(ctx context.Context, tx storage.Gateway) error) error {
	return f.DB.RunInTx(ctx, func(ctx context.Context, tx storage.Gateway) error {
		return fn(ctx, failingGateway{tx})
	})
}

type failingGateway struct {
	storage.Gateway
}

func (g failingGateway) Staff() storage.Repository[models.Staff] {
	return failingUpdates{g.Gateway.Staff()}
}

type failingUpdates struct {
	storage.Repository[models.Staff]
}

func (failingUpdates) Update(context.Context, *models.Staff) error {
	return errors.New("disk full")
}
