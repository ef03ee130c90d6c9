package issuance

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"coupon-admin/internal/model"
	"coupon-admin/internal/storage"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memJobRepository keeps jobs in memory and honours the status guard of Update.
type memJobRepository struct {
	mu     sync.Mutex
	jobs   map[int64]model.IssuanceJob
	nextID int64
}

func newMemJobRepository() *memJobRepository {
	return &memJobRepository{jobs: make(map[int64]model.IssuanceJob)}
}

func (r *memJobRepository) Create(ctx context.Context, job *model.IssuanceJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	job.ID = r.nextID
	r.jobs[job.ID] = *job
	return nil
}

func (r *memJobRepository) GetByID(ctx context.Context, id int64) (*model.IssuanceJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	return &job, nil
}

func (r *memJobRepository) Update(ctx context.Context, job *model.IssuanceJob, from model.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.jobs[job.ID]
	if !ok {
		return model.ErrJobNotFound
	}
	if stored.Status != from {
		return model.ErrInvalidTransition.WithMessage(
			fmt.Sprintf("job %d is %s, expected %s", job.ID, stored.Status, from),
		)
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memJobRepository) List(ctx context.Context) ([]model.IssuanceJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	jobs := make([]model.IssuanceJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID > jobs[k].ID })
	return jobs, nil
}

func (r *memJobRepository) ListByStatus(ctx context.Context, status model.JobStatus) ([]model.IssuanceJob, error) {
	all, _ := r.List(ctx)
	jobs := make([]model.IssuanceJob, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Status == status {
			jobs = append(jobs, all[i])
		}
	}
	return jobs, nil
}

func (r *memJobRepository) get(t *testing.T, id int64) model.IssuanceJob {
	t.Helper()
	job, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	return *job
}

// MockCouponRepository is a mock implementation of CouponRepository.
type MockCouponRepository struct {
	mock.Mock
}

func (m *MockCouponRepository) InsertBatch(ctx context.Context, coupons []model.Coupon) error {
	args := m.Called(ctx, coupons)
	return args.Error(0)
}

func (m *MockCouponRepository) CountByJob(ctx context.Context, jobID int64) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}

// memStorage serves files from memory. Open returns non-seekable streams.
type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (s *memStorage) Save(ctx context.Context, r io.Reader, originalName string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := fmt.Sprintf("%s/%d_%s", storage.UploadDir, len(s.files)+1, originalName)
	s.files[p] = data
	return p, nil
}

func (s *memStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, model.ErrNotFound.WithMessage(fmt.Sprintf("stored file %q not found", path))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) PresignUpload(ctx context.Context, fileName, contentType string) (storage.UploadHandle, error) {
	return storage.UploadHandle{}, model.ErrUnsupported
}

// csvFile renders a customer list with n ids.
func csvFile(n int) []byte {
	var b strings.Builder
	b.WriteString("customer_id\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "CUST%06d\n", i)
	}
	return []byte(b.String())
}

// seedJob stores content and registers an UPLOADED job for it.
func seedJob(t *testing.T, jobs *memJobRepository, store *memStorage, fileName string, content []byte) int64 {
	t.Helper()
	ctx := context.Background()

	path := storage.UploadDir + "/missing_" + fileName
	if content != nil {
		var err error
		path, err = store.Save(ctx, bytes.NewReader(content), fileName)
		require.NoError(t, err)
	}

	job := model.NewIssuanceJob(fileName, path, 1, time.Now())
	require.NoError(t, jobs.Create(ctx, job))
	return job.ID
}

// chunkOf matches an InsertBatch call with exactly n coupons.
func chunkOf(n int) any {
	return mock.MatchedBy(func(c []model.Coupon) bool { return len(c) == n })
}
