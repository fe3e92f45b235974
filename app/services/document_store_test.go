package services

import (
	"strings"
	"testing"
	"time"

	"github.com/amirphl/vetverify/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("8f14e45f-ceea-4e6b-9c1d-3f2a1b0c9d8e")
	at := time.Unix(0, 1700000000123456789)
	assert.Equal(t, "8f14e45f-ceea-4e6b-9c1d-3f2a1b0c9d8e/1700000000123456789.pdf", ObjectKey(id, "License.PDF", at))
	assert.Equal(t, "8f14e45f-ceea-4e6b-9c1d-3f2a1b0c9d8e/1700000000123456789", ObjectKey(id, "noext", at))
}

func TestProgressTracker(t *testing.T) {
	var events []UploadProgress
	p := newProgressTracker(200, func(ev UploadProgress) { events = append(events, ev) })

	_, _ = p.Read(make([]byte, 50))
	_, _ = p.Read(make([]byte, 100))
	_, _ = p.Read(make([]byte, 100)) // clamps at total
	p.done(200)

	require.Len(t, events, 4)
	assert.InDelta(t, 25.0, events[0].Percent, 0.001)
	assert.InDelta(t, 75.0, events[1].Percent, 0.001)
	assert.Equal(t, int64(200), events[2].Loaded)
	assert.InDelta(t, 100.0, events[3].Percent, 0.001)
}

func TestProgressTrackerUnknownSize(t *testing.T) {
	var last UploadProgress
	p := newProgressTracker(-1, func(ev UploadProgress) { last = ev })
	_, _ = p.Read(make([]byte, 10))
	assert.Zero(t, last.Percent)
	p.done(10)
	assert.InDelta(t, 100.0, last.Percent, 0.001)
}

func TestMinioDocumentStoreURLs(t *testing.T) {
	s, err := NewMinioDocumentStore(config.StorageConfig{
		Endpoint:  "minio.local:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "docs",
	})
	require.NoError(t, err)

	url := s.PublicURL("acc/1.pdf")
	assert.Equal(t, "http://minio.local:9000/docs/acc/1.pdf", url)

	key, err := s.objectKeyFromURL(url)
	require.NoError(t, err)
	assert.Equal(t, "acc/1.pdf", key)

	_, err = s.objectKeyFromURL("https://elsewhere.example.com/other/acc/1.pdf")
	assert.Error(t, err)

	s.config.PublicBaseURL = "https://cdn.example.com/"
	assert.True(t, strings.HasPrefix(s.PublicURL("k.png"), "https://cdn.example.com/docs/"))
}

func TestMinioDocumentStoreOwns(t *testing.T) {
	s, err := NewMinioDocumentStore(config.StorageConfig{
		Endpoint:  "minio.local:9000",
		AccessKey: "ak",
		SecretKey: "sk",
		Bucket:    "docs",
	})
	require.NoError(t, err)

	owner, other := uuid.New(), uuid.New()
	own := s.PublicURL(ObjectKey(owner, "license.pdf", time.Now()))
	theirs := s.PublicURL(ObjectKey(other, "license.pdf", time.Now()))

	assert.True(t, s.Owns(owner, own))
	assert.False(t, s.Owns(owner, theirs))
	assert.False(t, s.Owns(owner, "https://elsewhere.example.com/"+owner.String()+"/1.pdf"))
	assert.False(t, s.Owns(owner, s.PublicURL(owner.String()+"/../"+other.String()+"/1.pdf")))
	assert.False(t, s.Owns(owner, s.PublicURL(owner.String()+"/")))
	assert.False(t, s.Owns(owner, "::not a url"))
}
