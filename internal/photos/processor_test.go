package photos

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltlot/voltlot-backend/pkg/db/dbtest"
	"github.com/voltlot/voltlot-backend/pkg/db/models"
	"github.com/voltlot/voltlot-backend/pkg/enums"
	"github.com/voltlot/voltlot-backend/pkg/logger"
	"github.com/voltlot/voltlot-backend/pkg/storage/s3"
)

type memoryStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	body, ok := m.objects[key]
	if !ok {
		return nil, s3.ErrObjectNotFound
	}
	return body, nil
}

func (m *memoryStore) Put(_ context.Context, key, contentType string, body []byte) error {
	m.objects[key] = body
	m.types[key] = contentType
	return nil
}

func (m *memoryStore) PublicURL(key string) string { return "https://cdn.test/" + key }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestProcessor(t *testing.T) (*Processor, *memoryStore, *models.Photo) {
	t.Helper()
	conn := dbtest.Open(t)
	seller := dbtest.Seller(t, conn, "proc@example.com")
	listing := dbtest.Listing(t, conn, seller.ID, "proc-listing", enums.ListingStatusApproved)
	photo := &models.Photo{ListingID: listing.ID, ImageKey: "listings/photos/2026/03/abc_side.png", IsPrimary: true}
	require.NoError(t, conn.Create(photo).Error)

	store := newMemoryStore()
	proc, err := NewProcessor(NewRepository(conn), store, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return proc, store, photo
}

func TestProcessWritesDerivatives(t *testing.T) {
	proc, store, photo := newTestProcessor(t)
	store.objects[photo.ImageKey] = pngBytes(t, 1600, 800)

	outcome, err := proc.Process(context.Background(), photo.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	thumbKey := "listings/photos/2026/03/abc_side_thumbnail.jpg"
	displayKey := "listings/photos/2026/03/abc_side_display.jpg"
	require.Contains(t, store.objects, thumbKey)
	require.Contains(t, store.objects, displayKey)
	assert.Equal(t, "image/jpeg", store.types[thumbKey])

	thumb, _, err := image.DecodeConfig(bytes.NewReader(store.objects[thumbKey]))
	require.NoError(t, err)
	assert.Equal(t, 320, thumb.Width)
	assert.Equal(t, 160, thumb.Height)

	saved, err := proc.repo.FindByID(context.Background(), photo.ID)
	require.NoError(t, err)
	require.NotNil(t, saved.ProcessedAt)
	assert.Equal(t, 1600, *saved.OriginalWidth)
	assert.Equal(t, 800, *saved.OriginalHeight)

	display, ok := saved.Derivatives["display"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, displayKey, display["name"])
	assert.EqualValues(t, 1280, display["width"])
	assert.EqualValues(t, 640, display["height"])
	assert.Equal(t, "https://cdn.test/"+displayKey, display["url"])
}

func TestProcessKeepsSmallImagesAtSize(t *testing.T) {
	proc, store, photo := newTestProcessor(t)
	store.objects[photo.ImageKey] = pngBytes(t, 200, 100)

	_, err := proc.Process(context.Background(), photo.ID)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(store.objects["listings/photos/2026/03/abc_side_display.jpg"]))
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestProcessMissing(t *testing.T) {
	proc, _, photo := newTestProcessor(t)

	outcome, err := proc.Process(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissing, outcome)

	outcome, err = proc.Process(context.Background(), photo.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMissing, outcome)
}

func TestProcessUndecodable(t *testing.T) {
	proc, store, photo := newTestProcessor(t)
	store.objects[photo.ImageKey] = []byte("not an image")

	_, err := proc.Process(context.Background(), photo.ID)
	require.ErrorIs(t, err, ErrUndecodable)
	assert.False(t, isTransient(err))
}

func TestDerivativeKey(t *testing.T) {
	assert.Equal(t, "a/b/c_thumbnail.jpg", DerivativeKey("a/b/c.webp", "thumbnail"))
	assert.Equal(t, "a/b/noext_display.jpg", DerivativeKey("a/b/noext", "display"))
}
