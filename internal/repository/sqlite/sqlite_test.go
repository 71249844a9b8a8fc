package sqlite

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"facecam/internal/dto"
	"facecam/internal/model"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabase_CreatesFileAndDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "faces.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
}

func TestImageRepository_InsertAndGet(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	img := &model.Image{
		Name:       "alice",
		NetID:      "ab123",
		Year:       "2027",
		Filename:   "alice.png",
		FilePath:   filepath.Join("Faces", "alice.png"),
		FileSize:   2048,
		Classifier: "haar",
		SessionID:  "session-1",
		CreatedAt:  created,
	}

	id, err := repo.Insert(img)
	require.NoError(t, err)
	require.Equal(t, id, img.ID)

	got, err := repo.GetByID(id)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "alice", got.Name)
	require.Equal(t, "ab123", got.NetID)
	require.Equal(t, "2027", got.Year)
	require.Equal(t, int64(2048), got.FileSize)
	require.True(t, created.Equal(got.CreatedAt))

	missing, err := repo.GetByID(id + 100)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestImageRepository_RecordsAreAppendOnly(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))

	_, err := repo.Insert(&model.Image{Name: "bob", Filename: "bob.png", FilePath: "Faces/bob.png", FileSize: 10})
	require.NoError(t, err)
	second, err := repo.Insert(&model.Image{Name: "bob", Filename: "bob.png", FilePath: "Faces/bob.png", FileSize: 30})
	require.NoError(t, err)

	count, err := repo.GetTotalCount(&dto.ImageFilters{})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	latest, err := repo.GetLatestByFilename("bob.png")
	require.NoError(t, err)
	require.Equal(t, second, latest.ID)

	size, err := repo.GetDirectorySize()
	require.NoError(t, err)
	require.Equal(t, int64(30), size)
}

func TestImageRepository_Filters(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))
	day := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	images := []model.Image{
		{Name: "alice", NetID: "a1", Year: "2026", Filename: "alice.png", FilePath: "Faces/alice.png", SessionID: "s1", CreatedAt: day},
		{Name: "alicia", NetID: "a2", Year: "2027", Filename: "alicia.png", FilePath: "Faces/alicia.png", SessionID: "s1", CreatedAt: day.Add(24 * time.Hour)},
		{Name: "carol", NetID: "c1", Year: "2026", Filename: "carol.png", FilePath: "Faces/carol.png", SessionID: "s2", CreatedAt: day.Add(48 * time.Hour)},
	}
	n, err := repo.InsertBatch(images)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	tests := []struct {
		name   string
		filter dto.ImageFilters
		want   []string
	}{
		{"all newest first", dto.ImageFilters{}, []string{"carol", "alicia", "alice"}},
		{"name substring", dto.ImageFilters{Name: "ali"}, []string{"alicia", "alice"}},
		{"year", dto.ImageFilters{Year: "2026"}, []string{"carol", "alice"}},
		{"session", dto.ImageFilters{SessionID: "s2"}, []string{"carol"}},
		{"date before is inclusive", dto.ImageFilters{DateBefore: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)}, []string{"alicia", "alice"}},
		{"date after", dto.ImageFilters{DateAfter: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)}, []string{"carol", "alicia"}},
		{"page", dto.ImageFilters{Limit: 1, Offset: 1}, []string{"alicia"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := tt.filter
			got, err := repo.GetAll(&filter)
			require.NoError(t, err)

			var names []string
			for _, img := range got {
				names = append(names, img.Name)
			}
			require.Equal(t, tt.want, names)
		})
	}
}

func TestDetectionRepository_InsertBatch(t *testing.T) {
	db := newTestDB(t)
	images := NewImageRepository(db)
	detections := NewDetectionRepository(db)

	imageID, err := images.Insert(&model.Image{Name: "dave", Filename: "dave.png", FilePath: "Faces/dave.png"})
	require.NoError(t, err)

	require.NoError(t, detections.InsertBatch([]model.Detection{
		{ImageID: imageID, X: 10, Y: 20, Width: 50, Height: 50},
		{ImageID: imageID, X: 100, Y: 40, Width: 60, Height: 60},
	}))
	require.NoError(t, detections.InsertBatch(nil))

	got, err := detections.GetByImageID(imageID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 100, got[1].X)

	count, err := detections.CountByImageID(imageID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestDatabase_ConcurrentInserts(t *testing.T) {
	repo := NewImageRepository(newTestDB(t))

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := repo.Insert(&model.Image{
				Name:     "concurrent_" + string(rune('a'+idx)),
				Filename: "concurrent_" + string(rune('a'+idx)) + ".png",
				FilePath: "Faces/",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	count, err := repo.GetTotalCount(nil)
	require.NoError(t, err)
	require.Equal(t, 10, count)
}
