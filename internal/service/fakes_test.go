package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/examtrust/report-module/internal/docstore"
	"github.com/examtrust/report-module/internal/domain/model"
	"github.com/examtrust/report-module/internal/objectstore"
	"github.com/examtrust/report-module/internal/repository"
)

// fakeIdentityRepo — in-memory реализация IdentityRepository для тестов.
type fakeIdentityRepo struct {
	invigilators []*model.Invigilator
	students     map[string]*model.Student
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{students: make(map[string]*model.Student)}
}

func (f *fakeIdentityRepo) addInvigilator(id int64, staffID, name string) {
	f.invigilators = append(f.invigilators, &model.Invigilator{ID: id, StaffID: staffID, Name: name})
}

func (f *fakeIdentityRepo) addStudent(regNo, name string) {
	f.students[regNo] = &model.Student{RegNo: regNo, Name: name}
}

func (f *fakeIdentityRepo) InvigilatorByID(_ context.Context, id int64) (*model.Invigilator, error) {
	for _, inv := range f.invigilators {
		if inv.ID == id {
			return inv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIdentityRepo) InvigilatorByStaffID(_ context.Context, staffID string) (*model.Invigilator, error) {
	for _, inv := range f.invigilators {
		if inv.StaffID == staffID {
			return inv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeIdentityRepo) LatestInvigilator(_ context.Context) (*model.Invigilator, error) {
	if len(f.invigilators) == 0 {
		return nil, repository.ErrNotFound
	}
	latest := f.invigilators[0]
	for _, inv := range f.invigilators {
		if inv.ID > latest.ID {
			latest = inv
		}
	}
	return latest, nil
}

func (f *fakeIdentityRepo) StudentByRegNo(_ context.Context, regNo string) (*model.Student, error) {
	s, ok := f.students[regNo]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return s, nil
}

// fakeCaseRepo — in-memory реализация CaseRepository для тестов.
type fakeCaseRepo struct {
	incidents map[int64]*model.Incident
	vaults    map[int64]*model.EvidenceVaultRecord
	students    *fakeIdentityRepo
	nextID      int64
	nextVaultID int64

	incidentErr error
	vaultErr    error
}

func newFakeCaseRepo(students *fakeIdentityRepo) *fakeCaseRepo {
	return &fakeCaseRepo{
		incidents: make(map[int64]*model.Incident),
		vaults:    make(map[int64]*model.EvidenceVaultRecord),
		students:    students,
		nextID:      1,
		nextVaultID: 1,
	}
}

func (f *fakeCaseRepo) CreateIncident(_ context.Context, _ repository.DBTX, inc *model.Incident) error {
	if f.incidentErr != nil {
		return f.incidentErr
	}
	inc.ID = f.nextID
	f.nextID++
	inc.CreatedAt = time.Now().UTC()
	cp := *inc
	f.incidents[inc.ID] = &cp
	return nil
}

func (f *fakeCaseRepo) CreateEvidenceVault(_ context.Context, _ repository.DBTX, rec *model.EvidenceVaultRecord) error {
	if f.vaultErr != nil {
		// Имитация отката транзакции: инцидент не фиксируется
		delete(f.incidents, rec.CaseID)
		return f.vaultErr
	}
	rec.ID = f.nextVaultID
	f.nextVaultID++
	rec.CapturedAt = time.Now().UTC()
	cp := *rec
	f.vaults[rec.CaseID] = &cp
	return nil
}

func (f *fakeCaseRepo) GetIncident(_ context.Context, id int64) (*model.Incident, error) {
	inc, ok := f.incidents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return inc, nil
}

func (f *fakeCaseRepo) GetEvidenceVaultByCaseID(_ context.Context, caseID int64) (*model.EvidenceVaultRecord, error) {
	rec, ok := f.vaults[caseID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec, nil
}

func (f *fakeCaseRepo) UpdateIncidentStatus(_ context.Context, id int64, status model.IncidentStatus) error {
	inc, ok := f.incidents[id]
	if !ok {
		return repository.ErrNotFound
	}
	inc.Status = status
	return nil
}

func (f *fakeCaseRepo) CountIncidents(_ context.Context) (int, error) {
	return len(f.incidents), nil
}

func (f *fakeCaseRepo) CountIncidentsByStatus(_ context.Context, status model.IncidentStatus) (int, error) {
	n := 0
	for _, inc := range f.incidents {
		if inc.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeCaseRepo) ListRecent(_ context.Context, limit int) ([]*repository.RecentIncident, error) {
	var result []*repository.RecentIncident
	// Новые первыми: ID монотонно растут
	for id := f.nextID - 1; id >= 1 && len(result) < limit; id-- {
		inc, ok := f.incidents[id]
		if !ok {
			continue
		}
		name := ""
		if s, ok := f.students.students[inc.StudentReg]; ok {
			name = s.Name
		}
		result = append(result, &repository.RecentIncident{
			ID:          inc.ID,
			StudentReg:  inc.StudentReg,
			StudentName: name,
			Status:      inc.Status,
			CreatedAt:   inc.CreatedAt,
		})
	}
	return result, nil
}

// fakeObjectStore — in-memory реализация objectstore.Client для тестов.
type fakeObjectStore struct {
	objects   map[string][]byte
	uploads   int
	uploadErr error
	fetchErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(_ context.Context, data []byte, originalName, _ string) (*objectstore.Object, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".pdf":
	default:
		return nil, fmt.Errorf("%w: расширение %q", objectstore.ErrUnsupportedMediaType, ext)
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	key := fmt.Sprintf("vault/obj-%d%s", f.uploads, ext)
	url := "http://store.local/evidence/" + key
	cp := make([]byte, len(data))
	copy(cp, data)
	f.objects[url] = cp
	return &objectstore.Object{URL: url, Key: key}, nil
}

func (f *fakeObjectStore) Fetch(_ context.Context, objectURL string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.objects[objectURL]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	return data, nil
}

// fakeDocStore — in-memory реализация docstore.EvidenceRepository для тестов.
type fakeDocStore struct {
	docs   map[int64]*model.EvidenceDocument
	putErr error
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[int64]*model.EvidenceDocument)}
}

func (f *fakeDocStore) Put(_ context.Context, doc *model.EvidenceDocument) error {
	if f.putErr != nil {
		return f.putErr
	}
	cp := *doc
	f.docs[doc.IncidentID] = &cp
	return nil
}

func (f *fakeDocStore) GetByIncidentID(_ context.Context, incidentID int64) (*model.EvidenceDocument, error) {
	doc, ok := f.docs[incidentID]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return doc, nil
}

// fakeTxRunner — выполняет функцию без реальной транзакции.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}
