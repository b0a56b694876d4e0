package mediatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthive/arthive/internal/models"
	apierrors "github.com/arthive/arthive/internal/pkg/errors"
)

func TestSpecFor(t *testing.T) {
	for _, c := range []models.Category{
		models.CategoryPainting,
		models.CategoryTrack,
		models.CategoryDanceVideo,
		models.CategoryAnimationVideo,
	} {
		spec, ok := SpecFor(c)
		require.True(t, ok, "missing spec for %s", c)
		assert.Equal(t, c, spec.Category)
		assert.NotEmpty(t, spec.Allowed)
		assert.NotEmpty(t, spec.ListPath)
	}

	_, ok := SpecFor(models.Category("sculpture"))
	assert.False(t, ok)
}

func TestAllCoversEveryCategory(t *testing.T) {
	all := All()
	require.Len(t, all, 4)

	seen := make(map[models.Category]bool)
	for _, spec := range all {
		seen[spec.Category] = true
	}
	assert.Len(t, seen, 4)
}

func TestValidateContentType(t *testing.T) {
	painting, _ := SpecFor(models.CategoryPainting)

	assert.NoError(t, painting.Validate("image/jpeg", 1024))
	assert.NoError(t, painting.Validate("image/png", 1024))

	// Case and surrounding whitespace are normalized
	assert.NoError(t, painting.Validate(" IMAGE/JPEG ", 1024))

	err := painting.Validate("application/pdf", 1024)
	require.Error(t, err)
	assert.Equal(t, "unsupported_media_type", apierrors.AsAPIError(err).Code)

	// Audio is not allowed in an image gallery
	err = painting.Validate("audio/mpeg", 1024)
	require.Error(t, err)
	assert.Equal(t, "unsupported_media_type", apierrors.AsAPIError(err).Code)
}

func TestValidateStripsParameters(t *testing.T) {
	dance, _ := SpecFor(models.CategoryDanceVideo)

	assert.NoError(t, dance.Validate("video/mp4; codecs=avc1.42E01E", 1024))
	assert.NoError(t, dance.Validate("video/mpeg;charset=binary", 1024))
}

func TestValidateSizeCap(t *testing.T) {
	dance, _ := SpecFor(models.CategoryDanceVideo)
	require.Equal(t, int64(MaxVideoBytes), dance.MaxBytes)

	// Exactly at the cap is allowed
	assert.NoError(t, dance.Validate("video/mp4", MaxVideoBytes))

	// One byte over is rejected
	err := dance.Validate("video/mp4", MaxVideoBytes+1)
	require.Error(t, err)
	assert.Equal(t, "payload_too_large", apierrors.AsAPIError(err).Code)
}

func TestValidateNoSizeCapForInlineImages(t *testing.T) {
	painting, _ := SpecFor(models.CategoryPainting)
	require.Zero(t, painting.MaxBytes)

	assert.NoError(t, painting.Validate("image/gif", MaxVideoBytes*10))
}

func TestStoragePolicies(t *testing.T) {
	painting, _ := SpecFor(models.CategoryPainting)
	assert.Equal(t, StoreInline, painting.Mode)
	assert.True(t, painting.PurgeAfterPersist)

	dance, _ := SpecFor(models.CategoryDanceVideo)
	assert.Equal(t, StoreReferenced, dance.Mode)
	assert.False(t, dance.PurgeAfterPersist)

	anime, _ := SpecFor(models.CategoryAnimationVideo)
	assert.Equal(t, StoreInline, anime.Mode)
	assert.True(t, anime.ReverseChronological)
}
