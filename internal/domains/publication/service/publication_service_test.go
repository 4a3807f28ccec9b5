package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-backend/internal/domains/publication/job"
	"marketplace-backend/internal/domains/publication/model"
	"marketplace-backend/internal/domains/publication/repository"
	"marketplace-backend/internal/infrastructure/database"
	"marketplace-backend/internal/infrastructure/storage"
)

// fakeCache records writes and invalidations in memory.
type fakeCache struct {
	mu      sync.Mutex
	store   map[string][]byte
	deletes []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return false, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.store[key] = nil
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, keys...)
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }

func (f *fakeCache) deleteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deletes)
}

// fakeEnqueuer captures cleanup requests instead of touching Redis.
type fakeEnqueuer struct {
	mu       sync.Mutex
	payloads []job.CleanupBlobsPayload
}

func (f *fakeEnqueuer) EnqueueBlobCleanup(ctx context.Context, payload job.CleanupBlobsPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeEnqueuer) enqueuedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for _, p := range f.payloads {
		keys = append(keys, p.StorageKeys...)
	}
	return keys
}

func (f *fakeEnqueuer) enqueuedPrefixes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var prefixes []string
	for _, p := range f.payloads {
		if p.Prefix != "" {
			prefixes = append(prefixes, p.Prefix)
		}
	}
	return prefixes
}

// failingStore wraps a real store but fails after failAfter successful writes.
type failingStore struct {
	inner     storage.BlobStore
	mu        sync.Mutex
	stored    int
	failAfter int
	removed   []string
}

func (f *failingStore) Store(ctx context.Context, folder string, img *storage.ProcessedImage) (*storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stored >= f.failAfter {
		return nil, fmt.Errorf("%w: disk on fire", storage.ErrStorageUnavailable)
	}
	f.stored++
	return f.inner.Store(ctx, folder, img)
}

func (f *failingStore) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	f.removed = append(f.removed, key)
	f.mu.Unlock()
	return f.inner.Remove(ctx, key)
}

func (f *failingStore) RemovePrefix(ctx context.Context, prefix string) error {
	return f.inner.RemovePrefix(ctx, prefix)
}

type fixture struct {
	svc      Service
	db       *database.SQLiteDB
	repo     repository.Repository
	cache    *fakeCache
	enqueuer *fakeEnqueuer
	root     string
	ownerID  uuid.UUID
	otherID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore lets a test swap in a misbehaving blob store.
func newFixtureWithStore(t *testing.T, wrap func(storage.BlobStore) storage.BlobStore) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.EnsureSchema(ctx, db))

	root := t.TempDir()
	var store storage.BlobStore
	store, err = storage.NewFilesystemStorage(root, "/uploads")
	require.NoError(t, err)
	if wrap != nil {
		store = wrap(store)
	}

	repo := repository.NewRepository()
	cache := newFakeCache()
	enqueuer := &fakeEnqueuer{}
	svc := NewService(db, repo, storage.NewImageProcessor(), store, cache, enqueuer)

	f := &fixture{
		svc:      svc,
		db:       db,
		repo:     repo,
		cache:    cache,
		enqueuer: enqueuer,
		root:     root,
		ownerID:  insertUser(t, db, "owner@example.com"),
		otherID:  insertUser(t, db, "other@example.com"),
	}
	return f
}

func insertUser(t *testing.T, db *database.SQLiteDB, email string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	_, err := db.Exec(context.Background(),
		`INSERT INTO users (id, name, email, password_hash, phone, department, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), "Test User", email, "hash", "", "", now, now)
	require.NoError(t, err)
	return id
}

func pngUpload(t *testing.T, name string) model.ImageUpload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 40))
	for x := 0; x < 60; x++ {
		img.Set(x, 20, color.RGBA{R: 10, G: 90, B: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return model.ImageUpload{Filename: name, ContentType: "image/png", Data: buf.Bytes()}
}

func validInput(images ...model.ImageUpload) model.CreateInput {
	return model.CreateInput{
		Title:       "Mountain bike",
		Description: "Barely used",
		Price:       decimal.NewFromInt(150),
		Images:      images,
	}
}

func blobCount(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func TestCreatePersistsPublicationAndOrderedImages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.ownerID, validInput(
		pngUpload(t, "first.png"),
		pngUpload(t, "second.png"),
		pngUpload(t, "third.png"),
	))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	p, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mountain bike", p.Title)
	assert.Equal(t, f.ownerID, p.OwnerID)
	assert.Equal(t, model.StateActive, p.State)
	assert.Equal(t, "150", p.Price.String())

	require.Len(t, p.Images, 3)
	for i, img := range p.Images {
		assert.Equal(t, i, img.Order)
		assert.Contains(t, img.URL, "/uploads/publications/"+created.ID.String())
	}
	assert.Equal(t, 3, blobCount(t, f.root))
	assert.Positive(t, f.cache.deleteCount())
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	// Every failing field is reported, not just the first.
	in := model.CreateInput{
		Title:       "",
		Description: "x",
		Price:       decimal.NewFromInt(-5),
	}
	_, err := f.svc.Create(context.Background(), f.ownerID, in)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs, "Title")
	assert.Contains(t, verrs, "Price")
	assert.NotContains(t, verrs, "Description")
}

func TestCreateRejectsTooManyImages(t *testing.T) {
	f := newFixture(t)

	uploads := make([]model.ImageUpload, model.MaxImages+1)
	for i := range uploads {
		uploads[i] = pngUpload(t, fmt.Sprintf("img%d.png", i))
	}
	_, err := f.svc.Create(context.Background(), f.ownerID, validInput(uploads...))

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, 0, blobCount(t, f.root))
}

func TestCreateRejectsUnsupportedUpload(t *testing.T) {
	f := newFixture(t)

	bad := model.ImageUpload{Filename: "malware.exe", ContentType: "application/x-dosexec", Data: []byte("MZ")}
	_, err := f.svc.Create(context.Background(), f.ownerID, validInput(bad))
	assert.ErrorIs(t, err, storage.ErrUnsupportedMediaType)

	rows, qerr := f.db.Query(context.Background(), `SELECT id FROM publications`)
	require.NoError(t, qerr)
	assert.Empty(t, rows)
}

func TestCreateDiscardsBlobsWhenStoreFails(t *testing.T) {
	var fs *failingStore
	f := newFixtureWithStore(t, func(inner storage.BlobStore) storage.BlobStore {
		fs = &failingStore{inner: inner, failAfter: 1}
		return fs
	})

	_, err := f.svc.Create(context.Background(), f.ownerID, validInput(
		pngUpload(t, "a.png"),
		pngUpload(t, "b.png"),
	))
	require.ErrorIs(t, err, storage.ErrStorageUnavailable)

	// The successfully stored blob was discarded, and no rows exist.
	assert.Equal(t, 0, blobCount(t, f.root))
	rows, qerr := f.db.Query(context.Background(), `SELECT id FROM publications`)
	require.NoError(t, qerr)
	assert.Empty(t, rows)
}

func TestUpdateFieldsAndGallery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.ownerID, validInput(
		pngUpload(t, "keep.png"),
		pngUpload(t, "drop.png"),
	))
	require.NoError(t, err)

	before, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	dropped := before.Images[1]

	updated, err := f.svc.Update(ctx, f.ownerID, created.ID, model.UpdateInput{
		Title:          "City bike",
		Description:    "Freshly serviced",
		Price:          decimal.NewFromFloat(99.50),
		RemoveImageIDs: []uuid.UUID{dropped.ID},
		Images:         []model.ImageUpload{pngUpload(t, "new.png")},
	})
	require.NoError(t, err)

	assert.Equal(t, "City bike", updated.Title)
	assert.Equal(t, "99.5", updated.Price.String())

	require.Len(t, updated.Images, 2)
	assert.Equal(t, before.Images[0].ID, updated.Images[0].ID)
	assert.Equal(t, 0, updated.Images[0].Order)
	// Appended image slots in after the highest surviving order.
	assert.Equal(t, 1, updated.Images[1].Order)

	// The removed blob's cleanup was scheduled.
	assert.Contains(t, f.enqueuer.enqueuedKeys(), dropped.StorageKey)
}

func TestUpdatePreservesOrderGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.ownerID, validInput(
		pngUpload(t, "a.png"),
		pngUpload(t, "b.png"),
		pngUpload(t, "c.png"),
	))
	require.NoError(t, err)

	before, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)

	// Remove the middle image; survivors keep orders 0 and 2.
	updated, err := f.svc.Update(ctx, f.ownerID, created.ID, model.UpdateInput{
		Title:          before.Title,
		Description:    before.Description,
		Price:          before.Price,
		RemoveImageIDs: []uuid.UUID{before.Images[1].ID},
		Images:         []model.ImageUpload{pngUpload(t, "d.png")},
	})
	require.NoError(t, err)

	require.Len(t, updated.Images, 3)
	assert.Equal(t, 0, updated.Images[0].Order)
	assert.Equal(t, 2, updated.Images[1].Order)
	assert.Equal(t, 3, updated.Images[2].Order)
}

func TestUpdateEnforcesGalleryCapBeforeProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	uploads := make([]model.ImageUpload, model.MaxImages)
	for i := range uploads {
		uploads[i] = pngUpload(t, fmt.Sprintf("img%d.png", i))
	}
	created, err := f.svc.Create(ctx, f.ownerID, validInput(uploads...))
	require.NoError(t, err)

	// The new upload is corrupt; if the cap were checked after processing
	// this would surface as an unsupported-media error instead.
	corrupt := model.ImageUpload{Filename: "x.png", ContentType: "image/png", Data: []byte("junk")}
	_, err = f.svc.Update(ctx, f.ownerID, created.ID, model.UpdateInput{
		Title:       "Still a bike",
		Description: "desc",
		Price:       decimal.NewFromInt(1),
		Images:      []model.ImageUpload{corrupt},
	})
	assert.ErrorIs(t, err, model.ErrTooManyImages)
}

func TestUpdateIgnoresForeignImageIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine, err := f.svc.Create(ctx, f.ownerID, validInput(pngUpload(t, "mine.png")))
	require.NoError(t, err)
	theirs, err := f.svc.Create(ctx, f.otherID, validInput(pngUpload(t, "theirs.png")))
	require.NoError(t, err)

	theirPub, err := f.svc.GetByID(ctx, theirs.ID)
	require.NoError(t, err)

	// Passing another publication's image id must not delete anything there.
	_, err = f.svc.Update(ctx, f.ownerID, mine.ID, model.UpdateInput{
		Title:          "Mine",
		Description:    "desc",
		Price:          decimal.NewFromInt(5),
		RemoveImageIDs: []uuid.UUID{theirPub.Images[0].ID},
	})
	require.NoError(t, err)

	stillTheirs, err := f.svc.GetByID(ctx, theirs.ID)
	require.NoError(t, err)
	assert.Len(t, stillTheirs.Images, 1)
}

func TestMutationsRequireOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.ownerID, validInput())
	require.NoError(t, err)

	in := model.UpdateInput{Title: "t", Description: "d", Price: decimal.NewFromInt(1)}
	_, err = f.svc.Update(ctx, f.otherID, created.ID, in)
	assert.ErrorIs(t, err, model.ErrForbidden)

	assert.ErrorIs(t, f.svc.Delete(ctx, f.otherID, created.ID), model.ErrForbidden)
	assert.ErrorIs(t, f.svc.SetState(ctx, f.otherID, created.ID, model.StateSold), model.ErrForbidden)
}

func TestMutationsOnMissingPublication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ghost := uuid.New()

	in := model.UpdateInput{Title: "t", Description: "d", Price: decimal.NewFromInt(1)}
	_, err := f.svc.Update(ctx, f.ownerID, ghost, in)
	assert.ErrorIs(t, err, model.ErrPublicationNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.ownerID, ghost), model.ErrPublicationNotFound)
	assert.ErrorIs(t, f.svc.SetState(ctx, f.ownerID, ghost, model.StateSold), model.ErrPublicationNotFound)

	_, err = f.svc.GetByID(ctx, ghost)
	assert.ErrorIs(t, err, model.ErrPublicationNotFound)
}

func TestDeleteRemovesRowsAndSchedulesCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.ownerID, validInput(
		pngUpload(t, "a.png"),
		pngUpload(t, "b.png"),
	))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.ownerID, created.ID))

	_, err = f.svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrPublicationNotFound)

	// Delete schedules removal of the listing's whole storage prefix, which
	// covers every blob ever written for it.
	assert.Contains(t, f.enqueuer.enqueuedPrefixes(), "publications/"+created.ID.String())
}

func TestSetState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.ownerID, validInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.SetState(ctx, f.ownerID, created.ID, model.StateSold))
	p, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StateSold, p.State)

	assert.ErrorIs(t, f.svc.SetState(ctx, f.ownerID, created.ID, "archived"), model.ErrInvalidState)
}

func TestSetStateSameValueStillTouchesUpdatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, f.ownerID, validInput())
	require.NoError(t, err)
	before, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, f.svc.SetState(ctx, f.ownerID, created.ID, model.StateActive))

	after, err := f.svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestListActiveExcludesSoldAndInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active, err := f.svc.Create(ctx, f.ownerID, validInput(pngUpload(t, "a.png")))
	require.NoError(t, err)
	sold, err := f.svc.Create(ctx, f.ownerID, validInput())
	require.NoError(t, err)
	require.NoError(t, f.svc.SetState(ctx, f.ownerID, sold.ID, model.StateSold))

	summaries, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, active.ID, summaries[0].ID)
	assert.NotEmpty(t, summaries[0].PrimaryImage)
}

func TestListByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.ownerID, validInput())
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.otherID, validInput())
	require.NoError(t, err)

	mine, err := f.svc.ListByOwner(ctx, f.ownerID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.ownerID, mine[0].OwnerID)
}